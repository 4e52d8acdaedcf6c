package strategy

import (
	"context"
	"fmt"

	"github.com/darknessitachi/pquant/internal/service/engine"
	"github.com/darknessitachi/pquant/internal/service/notification"
)

// SessionNotifier 开盘收盘时推送提醒
type SessionNotifier struct {
	Base
	notifier notification.Notifier
}

func NewSessionNotifier(n notification.Notifier) *SessionNotifier {
	return &SessionNotifier{notifier: n}
}

func (s *SessionNotifier) Name() string {
	return "session_notifier"
}

func (s *SessionNotifier) OnClock(ctx context.Context, p engine.ClockPayload) error {
	var text string
	switch {
	case p.IsMoment(engine.MomentOpen):
		text = "开盘了"
	case p.IsMoment(engine.MomentClose):
		text = "收盘了"
	default:
		return nil
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		return fmt.Errorf("notify %s: %w", p.Label, err)
	}
	return nil
}
