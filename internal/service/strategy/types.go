package strategy

import (
	"context"
	"time"

	"github.com/darknessitachi/pquant/internal/service/engine"
	"github.com/shopspring/decimal"
)

// Strategy 订阅行情与时钟事件的策略
type Strategy interface {
	Name() string
	OnQuotation(ctx context.Context, p engine.QuotationPayload) error
	OnClock(ctx context.Context, p engine.ClockPayload) error
}

// FlashbackHandler 支持历史回放的策略额外实现
type FlashbackHandler interface {
	OnFlashback(ctx context.Context, p engine.FlashbackPayload) error
}

// Subscriber 总线的订阅能力
type Subscriber interface {
	Subscribe(t engine.Type, h engine.Handler) engine.SubscriptionID
}

// Register 把策略挂到总线上, 返回全部订阅 ID
func Register(bus Subscriber, s Strategy) []engine.SubscriptionID {
	ids := []engine.SubscriptionID{
		bus.Subscribe(engine.TypeQuotation, func(ctx context.Context, e engine.Event) error {
			p, ok := e.Data.(engine.QuotationPayload)
			if !ok {
				return nil
			}
			return s.OnQuotation(ctx, p)
		}),
		bus.Subscribe(engine.TypeClock, func(ctx context.Context, e engine.Event) error {
			p, ok := e.Data.(engine.ClockPayload)
			if !ok {
				return nil
			}
			return s.OnClock(ctx, p)
		}),
	}
	if fh, ok := s.(FlashbackHandler); ok {
		ids = append(ids, bus.Subscribe(engine.TypeFlashback, func(ctx context.Context, e engine.Event) error {
			p, ok := e.Data.(engine.FlashbackPayload)
			if !ok {
				return nil
			}
			return fh.OnFlashback(ctx, p)
		}))
	}
	return ids
}

// Base 空实现, 嵌入后只需覆盖关心的事件
type Base struct{}

func (Base) OnQuotation(context.Context, engine.QuotationPayload) error { return nil }

func (Base) OnClock(context.Context, engine.ClockPayload) error { return nil }

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Signal 策略给出的交易信号, 只记录不执行
type Signal struct {
	Strategy string
	Code     string
	Side     Side
	Price    decimal.Decimal
	Amount   decimal.Decimal // 金额
	Level    int             // 触发时所在网格
	Time     time.Time
}
