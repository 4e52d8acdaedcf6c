package ioc

import (
	"context"

	"github.com/darknessitachi/pquant/internal/service/llm"
	"github.com/darknessitachi/pquant/internal/service/llm/gemini"
	"github.com/google/generative-ai-go/genai"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

type geminiConfig struct {
	ApiKey      []string `mapstructure:"api_key"`
	Model       string   `mapstructure:"model"`
	Temperature float32  `mapstructure:"temperature"`
}

func InitGeminiCli() *genai.Client {
	var cfg geminiConfig
	if err := viper.UnmarshalKey("llm.gemini", &cfg); err != nil {
		panic(err)
	}

	if len(cfg.ApiKey) == 0 {
		panic("no gemini api key set")
	}

	cli, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.ApiKey[0]))
	if err != nil {
		panic(err)
	}
	return cli
}

func InitLLM() llm.Service {
	var cfg geminiConfig
	if err := viper.UnmarshalKey("llm.gemini", &cfg); err != nil {
		panic(err)
	}
	opts := []gemini.Option{gemini.WithModel(cfg.Model)}
	if cfg.Temperature > 0 {
		opts = append(opts, gemini.WithTemperature(cfg.Temperature))
	}
	return gemini.NewService(InitGeminiCli(), opts...)
}
