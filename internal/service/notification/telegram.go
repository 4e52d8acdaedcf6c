package notification

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// sender 即 *tgbotapi.BotAPI 的发送能力
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram 发送到固定的会话
type Telegram struct {
	api    sender
	chatID int64
	log    zerolog.Logger
}

func NewTelegram(api *tgbotapi.BotAPI, chatID int64, l zerolog.Logger) *Telegram {
	return newTelegram(api, chatID, l)
}

func newTelegram(api sender, chatID int64, l zerolog.Logger) *Telegram {
	return &Telegram{
		api:    api,
		chatID: chatID,
		log:    l.With().Str("component", "tg_notifier").Logger(),
	}
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error().Err(err).Int64("chat_id", t.chatID).Msg("failed to send message")
		return fmt.Errorf("telegram notify: %w", err)
	}
	return nil
}
