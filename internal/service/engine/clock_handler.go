package engine

import (
	"context"
	"time"

	"github.com/darknessitachi/pquant/internal/service/calendar"
)

// IntervalHandler 间隔时钟处理器, 以周期秒数为键
type IntervalHandler struct {
	clock       *ClockEngine
	minutes     float64
	seconds     int64
	tradingOnly bool
	call        func()
}

type IntervalOption func(h *IntervalHandler)

// WithIntervalCallback 触发时在发布事件前调用
func WithIntervalCallback(fn func()) IntervalOption {
	return func(h *IntervalHandler) {
		if fn != nil {
			h.call = fn
		}
	}
}

func (h *IntervalHandler) Period() time.Duration {
	return time.Duration(h.seconds) * time.Second
}

func (h *IntervalHandler) Minutes() float64 {
	return h.minutes
}

func (h *IntervalHandler) TradingOnly() bool {
	return h.tradingOnly
}

// IsActive 以时钟引擎当前时间判断是否触发
func (h *IntervalHandler) IsActive() bool {
	return h.activeAt(h.clock.Now())
}

func (h *IntervalHandler) activeAt(now time.Time) bool {
	if h.tradingOnly && !h.clock.TradingState() {
		return false
	}
	return now.Unix()%h.seconds == 0
}

func (h *IntervalHandler) payload(trading bool) ClockPayload {
	return ClockPayload{
		TradingState: trading,
		Kind:         ClockKindInterval,
		Period:       h.Period(),
		Label:        minutesLabel(h.minutes),
	}
}

// MomentHandler 固定时刻时钟处理器, 任一时刻只有一个待触发时间
type MomentHandler struct {
	clock          *ClockEngine
	label          string
	at             calendar.TimeOfDay
	tradingDayOnly bool
	makeup         bool
	call           func()

	// next 由 clock.mu 保护
	next time.Time
}

type MomentOption func(h *MomentHandler)

// WithCalendarDays 每个自然日都触发, 而不只是交易日
func WithCalendarDays() MomentOption {
	return func(h *MomentHandler) {
		h.tradingDayOnly = false
	}
}

// WithMakeup 注册时已过触发时刻则在下一次检查时补发
func WithMakeup() MomentOption {
	return func(h *MomentHandler) {
		h.makeup = true
	}
}

func WithMomentCallback(fn func()) MomentOption {
	return func(h *MomentHandler) {
		if fn != nil {
			h.call = fn
		}
	}
}

func (h *MomentHandler) Label() string {
	return h.label
}

func (h *MomentHandler) At() calendar.TimeOfDay {
	return h.at
}

func (h *MomentHandler) TradingDayOnly() bool {
	return h.tradingDayOnly
}

func (h *MomentHandler) Makeup() bool {
	return h.makeup
}

func (h *MomentHandler) NextFire() time.Time {
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	return h.next
}

// IsActive 以时钟引擎当前时间判断是否到期
func (h *MomentHandler) IsActive(ctx context.Context) (bool, error) {
	now := h.clock.Now()
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	return h.activeAt(ctx, now)
}

// activeAt 调用方持有 clock.mu
func (h *MomentHandler) activeAt(ctx context.Context, now time.Time) (bool, error) {
	if h.tradingDayOnly {
		ok, err := h.clock.cal.IsTradeDate(ctx, now)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return !h.next.After(now), nil
}

// advance 计算下一次触发时间: 下一个交易日或下一个自然日的同一时刻
// 调用方持有 clock.mu
func (h *MomentHandler) advance(ctx context.Context, now time.Time) error {
	if !h.tradingDayOnly {
		h.next = h.at.On(now.In(h.next.Location()).AddDate(0, 0, 1))
		return nil
	}
	day, err := h.clock.cal.NextTradeDate(ctx, now)
	if err != nil {
		return err
	}
	h.next = h.at.On(day.In(h.next.Location()))
	return nil
}

func (h *MomentHandler) payload(trading bool) ClockPayload {
	return ClockPayload{
		TradingState: trading,
		Kind:         ClockKindMoment,
		Label:        h.label,
	}
}
