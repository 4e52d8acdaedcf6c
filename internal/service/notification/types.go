package notification

import "context"

// Notifier 向用户推送一段文本
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Multi 依次发送到所有渠道, 返回第一个错误但不中断后续渠道
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, text string) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, text); err != nil && first == nil {
			first = err
		}
	}
	return first
}
