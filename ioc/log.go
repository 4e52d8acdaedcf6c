package ioc

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func InitLogger() zerolog.Logger {
	type Config struct {
		Level   string `mapstructure:"level"`
		Console bool   `mapstructure:"console"`
	}

	cfg := Config{Level: "info", Console: true}
	if err := viper.UnmarshalKey("log", &cfg); err != nil {
		panic(err)
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		panic(err)
	}

	var l zerolog.Logger
	if cfg.Console {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		l = zerolog.New(os.Stderr)
	}
	l = l.Level(level).With().Timestamp().Logger()
	log.Logger = l
	return l
}
