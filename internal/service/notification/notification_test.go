package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func TestTelegram_Notify(t *testing.T) {
	s := new(mockSender)
	s.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 42 && msg.Text == "开盘"
	})).Return(nil).Once()
	s.On("Send", mock.Anything).Return(errors.New("blocked")).Once()

	n := newTelegram(s, 42, zerolog.Nop())
	require.NoError(t, n.Notify(context.Background(), "开盘"))
	assert.Error(t, n.Notify(context.Background(), "收盘"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, "ignored"), context.Canceled)
	s.AssertExpectations(t)
}

type recordNotifier struct {
	texts []string
	err   error
}

func (r *recordNotifier) Notify(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return r.err
}

func TestMulti_Notify(t *testing.T) {
	var buf bytes.Buffer
	failing := &recordNotifier{err: errors.New("down")}
	ok := &recordNotifier{}
	m := Multi{failing, ok, NewConsole(zerolog.New(&buf))}

	err := m.Notify(context.Background(), "hello")
	assert.EqualError(t, err, "down")
	assert.Equal(t, []string{"hello"}, ok.texts)
	assert.Contains(t, buf.String(), "hello")
}
