package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// Console 只写日志, 未配置其他渠道时使用
type Console struct {
	log zerolog.Logger
}

func NewConsole(l zerolog.Logger) *Console {
	return &Console{log: l.With().Str("component", "notifier").Logger()}
}

func (c *Console) Notify(_ context.Context, text string) error {
	c.log.Info().Str("text", text).Msg("notification")
	return nil
}
