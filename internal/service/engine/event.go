package engine

import (
	"strconv"
	"time"

	"github.com/darknessitachi/pquant/internal/service/quotation"
)

// Type 事件类型
type Type string

const (
	TypeClock     Type = "clock_tick"
	TypeQuotation Type = "quotation"
	TypeFlashback Type = "flashback"

	// TypeAny 通配订阅, 只用于 SubscribeAll
	TypeAny Type = "*"
)

func (t Type) ToString() string {
	return string(t)
}

// Payload 事件数据, 每个生产者一个实现
// 新的生产者只需实现 EventType 即可通过总线发布
type Payload interface {
	EventType() Type
}

// Event 发布后不可修改
type Event struct {
	ID        string
	Type      Type
	Data      Payload
	Timestamp time.Time
}

// NewEvent 根据 payload 构造事件, ID 与时间戳在发布时补齐
func NewEvent(data Payload) Event {
	return Event{
		Type: data.EventType(),
		Data: data,
	}
}

type ClockKind string

const (
	ClockKindInterval ClockKind = "interval"
	ClockKindMoment   ClockKind = "moment"
)

// ClockPayload 时钟事件
type ClockPayload struct {
	TradingState bool
	Kind         ClockKind
	Period       time.Duration // 仅间隔事件
	Label        string        // 时刻事件为 open/pause/continue/close 等, 间隔事件为分钟数
}

func (ClockPayload) EventType() Type {
	return TypeClock
}

// IsMoment 是否为指定的时刻事件
func (p ClockPayload) IsMoment(label string) bool {
	return p.Kind == ClockKindMoment && p.Label == label
}

// IsInterval 是否为指定分钟数的间隔事件
func (p ClockPayload) IsInterval(minutes float64) bool {
	return p.Kind == ClockKindInterval && p.Period == minutesToDuration(minutes)
}

// QuotationPayload 行情快照事件
type QuotationPayload struct {
	Source   string
	Snapshot quotation.Snapshot
}

func (QuotationPayload) EventType() Type {
	return TypeQuotation
}

// FlashbackPayload 历史回放事件, 每根 bar 一个
type FlashbackPayload struct {
	Code  string
	Index int
	Total int
	Bar   quotation.Bar
}

func (FlashbackPayload) EventType() Type {
	return TypeFlashback
}

func minutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}

func minutesLabel(minutes float64) string {
	return strconv.FormatFloat(minutes, 'f', -1, 64)
}
