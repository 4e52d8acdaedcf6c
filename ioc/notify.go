package ioc

import (
	"github.com/darknessitachi/pquant/internal/service/notification"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// InitNotifier 总是输出到日志, 配置了 telegram 时同时推送
func InitNotifier(l zerolog.Logger) notification.Notifier {
	type Config struct {
		Telegram struct {
			Token  string `mapstructure:"token"`
			ChatID int64  `mapstructure:"chat_id"`
		} `mapstructure:"telegram"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("notify", &cfg); err != nil {
		panic(err)
	}

	notifiers := notification.Multi{notification.NewConsole(l)}
	if cfg.Telegram.Token != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			panic(err)
		}
		notifiers = append(notifiers, notification.NewTelegram(api, cfg.Telegram.ChatID, l))
	}
	return notifiers
}
