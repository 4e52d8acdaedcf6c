package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultConfigFile = "./config/config.dev.yaml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pquant",
	Short: "pquant - 事件驱动的 A 股行情与策略框架",
	Long: `pquant 以事件总线串联时钟引擎、行情引擎与回放引擎,
策略只需订阅行情与时钟事件.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file")
}

func initConfig() {
	// .env 中的变量以 PQUANT_ 前缀覆盖配置, 如 PQUANT_NOTIFY_TELEGRAM_TOKEN
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Msg("failed to load .env")
	}

	viper.SetConfigFile(cfgFile)
	viper.SetEnvPrefix("pquant")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if rootCmd.PersistentFlags().Changed("config") {
			log.Fatal().Err(err).Str("file", cfgFile).Msg("failed to read config")
		}
		fmt.Fprintf(os.Stderr, "config %s not loaded, using defaults: %v\n", cfgFile, err)
	}
}

// flagString 未设置或类型不符时返回空串
func flagString(flags *pflag.FlagSet, name string) string {
	v, err := flags.GetString(name)
	if err != nil {
		return ""
	}
	return v
}
