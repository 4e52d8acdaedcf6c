package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var (
	ErrQueueFull    = errors.New("event queue full")
	ErrBusClosed    = errors.New("event bus closed")
	ErrInvalidEvent = errors.New("invalid event")
)

const defaultBusCapacity = 10000

// Handler 策略等订阅方的回调. 返回的错误只会被记录
type Handler func(ctx context.Context, e Event) error

type SubscriptionID string

type subscription struct {
	id      SubscriptionID
	handler Handler
}

var _ Engine = (*Bus)(nil)
var _ Publisher = (*Bus)(nil)

// Bus 事件总线, 有界队列 + 单个分发 goroutine
// 同一事件先按注册顺序调用精确类型的订阅者, 再调用通配订阅者
type Bus struct {
	log   zerolog.Logger
	queue chan Event

	closed  atomic.Bool
	abandon atomic.Bool

	mu       sync.RWMutex
	handlers map[Type][]subscription
	wildcard []subscription

	*worker
}

type BusOption func(b *Bus)

func WithBusLogger(l zerolog.Logger) BusOption {
	return func(b *Bus) {
		b.log = l.With().Str("component", "event_bus").Logger()
	}
}

// WithDrainTimeout Stop 等待排空的最长时间
func WithDrainTimeout(d time.Duration) BusOption {
	return func(b *Bus) {
		if d > 0 {
			b.worker.stopTimeout = d
		}
	}
}

func NewBus(capacity int, opts ...BusOption) *Bus {
	if capacity <= 0 {
		capacity = defaultBusCapacity
	}
	b := &Bus{
		log:      zerolog.Nop(),
		queue:    make(chan Event, capacity),
		handlers: make(map[Type][]subscription),
		worker:   newWorker(defaultStopTimeout),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Name() string {
	return "event bus"
}

// Publish 入队, 不阻塞. 队列满时拒绝最新事件并返回 ErrQueueFull
func (b *Bus) Publish(e Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if e.Type == "" && e.Data != nil {
		e.Type = e.Data.EventType()
	}
	if e.Type == "" || e.Type == TypeAny {
		return fmt.Errorf("%w: type %q", ErrInvalidEvent, e.Type)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	select {
	case b.queue <- e:
		return nil
	default:
		b.log.Warn().
			Str("event_id", e.ID).
			Str("event_type", e.Type.ToString()).
			Int("capacity", cap(b.queue)).
			Msg("event queue full, rejecting event")
		return ErrQueueFull
	}
}

// PublishPayload 发布 payload 的便捷方法
func (b *Bus) PublishPayload(data Payload) error {
	return b.Publish(NewEvent(data))
}

// Subscribe 订阅某一类型的事件, TypeAny 等同于 SubscribeAll
func (b *Bus) Subscribe(t Type, h Handler) SubscriptionID {
	if t == TypeAny {
		return b.SubscribeAll(h)
	}
	sub := subscription{id: SubscriptionID(uuid.NewString()), handler: h}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], sub)
	b.log.Debug().Str("event_type", t.ToString()).Str("subscription", string(sub.id)).Msg("handler subscribed")
	return sub.id
}

// SubscribeAll 订阅全部事件
func (b *Bus) SubscribeAll(h Handler) SubscriptionID {
	sub := subscription{id: SubscriptionID(uuid.NewString()), handler: h}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, sub)
	b.log.Debug().Str("subscription", string(sub.id)).Msg("wildcard handler subscribed")
	return sub.id
}

func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	match := func(s subscription, _ int) bool { return s.id == id }
	for t, subs := range b.handlers {
		if _, idx, ok := lo.FindIndexOf(subs, func(s subscription) bool { return s.id == id }); ok {
			b.handlers[t] = append(subs[:idx:idx], subs[idx+1:]...)
			return true
		}
	}
	if lo.ContainsBy(b.wildcard, func(s subscription) bool { return s.id == id }) {
		b.wildcard = lo.Reject(b.wildcard, match)
		return true
	}
	return false
}

// Pending 队列中尚未分发的事件数
func (b *Bus) Pending() int {
	return len(b.queue)
}

func (b *Bus) Start() error {
	if err := b.worker.start(b.loop); err != nil {
		return err
	}
	b.log.Info().Int("capacity", cap(b.queue)).Msg("event bus started")
	return nil
}

// Stop 不再接收新事件, 等待正在执行的回调并排空队列
func (b *Bus) Stop() error {
	b.closed.Store(true)
	err := b.worker.stop(func() {
		b.abandon.Store(true)
		b.log.Warn().
			Int("abandoned", len(b.queue)).
			Dur("timeout", b.worker.stopTimeout).
			Msg("event bus drain timed out, abandoning queued events")
	})
	if err == nil {
		if n := len(b.queue); n > 0 {
			b.log.Warn().Int("abandoned", n).Msg("event bus stopped with undelivered events")
		}
		b.log.Info().Msg("event bus stopped")
	}
	return err
}

func (b *Bus) Run(ctx context.Context) error {
	return run(ctx, b, b.worker.doneChan())
}

func (b *Bus) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.drain()
			return
		case e := <-b.queue:
			b.dispatch(e)
		}
	}
}

func (b *Bus) drain() {
	for !b.abandon.Load() {
		select {
		case e := <-b.queue:
			b.dispatch(e)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.handlers[e.Type])+len(b.wildcard))
	subs = append(subs, b.handlers[e.Type]...)
	subs = append(subs, b.wildcard...)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.invoke(sub, e)
	}
}

// invoke 回调失败或 panic 都只记录, 不影响后续回调
func (b *Bus) invoke(sub subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("event_id", e.ID).
				Str("event_type", e.Type.ToString()).
				Str("subscription", string(sub.id)).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("event handler panicked")
		}
	}()

	start := time.Now()
	if err := sub.handler(context.Background(), e); err != nil {
		b.log.Error().
			Err(err).
			Str("event_id", e.ID).
			Str("event_type", e.Type.ToString()).
			Str("subscription", string(sub.id)).
			Msg("event handler failed")
		return
	}
	b.log.Trace().
		Str("event_id", e.ID).
		Str("event_type", e.Type.ToString()).
		Dur("duration", time.Since(start)).
		Msg("event handled")
}
