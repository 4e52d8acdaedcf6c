package ioc

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// InitHTTPCli 行情与节假日接口共用的 http 客户端
func InitHTTPCli() *resty.Client {
	type Config struct {
		Timeout time.Duration `mapstructure:"timeout"`
		Proxy   string        `mapstructure:"proxy"`
	}

	cfg := Config{Timeout: 10 * time.Second}
	if err := viper.UnmarshalKey("http", &cfg); err != nil {
		panic(err)
	}

	cli := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", userAgent)
	if cfg.Proxy != "" {
		cli.SetProxy(cfg.Proxy)
	}
	return cli
}
