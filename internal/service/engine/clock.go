package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darknessitachi/pquant/internal/service/calendar"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var (
	ErrInvalidPeriod     = errors.New("invalid interval period")
	ErrDuplicateInterval = errors.New("interval already registered")
	ErrInvalidMoment     = errors.New("invalid moment")
)

const (
	MomentOpen     = "open"
	MomentPause    = "pause"
	MomentContinue = "continue"
	MomentClose    = "close"
)

// DefaultIntervals 缺省的间隔事件, 单位分钟
var DefaultIntervals = []float64{0.5, 1, 5, 15, 30, 60}

// MomentTimes 缺省时刻事件的时间
type MomentTimes struct {
	Open     calendar.TimeOfDay
	Pause    calendar.TimeOfDay
	Continue calendar.TimeOfDay
	Close    calendar.TimeOfDay
}

var DefaultMomentTimes = MomentTimes{
	Open:     calendar.NewTimeOfDay(9, 0, 0),
	Pause:    calendar.NewTimeOfDay(11, 30, 0),
	Continue: calendar.NewTimeOfDay(13, 0, 0),
	Close:    calendar.NewTimeOfDay(15, 0, 0),
}

var _ Engine = (*ClockEngine)(nil)
var _ TradingStater = (*ClockEngine)(nil)

// ClockEngine 统一的时间源与交易日历调度器, 向总线推送 clock_tick 事件
type ClockEngine struct {
	bus Publisher
	cal calendar.Calendar
	log zerolog.Logger
	now func() time.Time
	loc *time.Location

	tick        time.Duration
	intervalSet []float64
	momentTimes MomentTimes

	trading atomic.Bool

	mu        sync.Mutex
	intervals map[int64]*IntervalHandler
	// moments 按 next 降序, 队尾最先到期
	moments    []*MomentHandler
	lastSecond int64

	*worker
}

type ClockOption func(c *ClockEngine)

func WithClockLogger(l zerolog.Logger) ClockOption {
	return func(c *ClockEngine) {
		c.log = l.With().Str("component", "clock_engine").Logger()
	}
}

// WithNow 替换时间源, 测试用
func WithNow(now func() time.Time) ClockOption {
	return func(c *ClockEngine) {
		if now != nil {
			c.now = now
		}
	}
}

func WithTick(d time.Duration) ClockOption {
	return func(c *ClockEngine) {
		if d > 0 {
			c.tick = d
		}
	}
}

// WithDefaultIntervals 替换缺省间隔事件, 传空则不注册
func WithDefaultIntervals(minutes ...float64) ClockOption {
	return func(c *ClockEngine) {
		c.intervalSet = minutes
	}
}

func WithMomentTimes(t MomentTimes) ClockOption {
	return func(c *ClockEngine) {
		c.momentTimes = t
	}
}

func WithClockStopTimeout(d time.Duration) ClockOption {
	return func(c *ClockEngine) {
		if d > 0 {
			c.worker.stopTimeout = d
		}
	}
}

func NewClockEngine(bus Publisher, cal calendar.Calendar, opts ...ClockOption) (*ClockEngine, error) {
	c := &ClockEngine{
		bus:         bus,
		cal:         cal,
		log:         zerolog.Nop(),
		now:         time.Now,
		loc:         cal.Location(),
		tick:        time.Second,
		intervalSet: DefaultIntervals,
		momentTimes: DefaultMomentTimes,
		intervals:   make(map[int64]*IntervalHandler),
		worker:      newWorker(defaultStopTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loc == nil {
		c.loc = time.Local
	}

	c.trading.Store(c.initTradingState())
	if err := c.registerDefaults(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ClockEngine) initTradingState() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := c.Now()
	trade, err := c.cal.IsTradeDate(ctx, now)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to query trade date, assume market closed")
		return false
	}
	hours, err := c.cal.IsTradingHours(ctx, now)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to query trading hours, assume market closed")
		return false
	}
	return trade && hours
}

func (c *ClockEngine) registerDefaults() error {
	t := c.momentTimes
	defaults := []struct {
		label string
		at    calendar.TimeOfDay
		call  func()
	}{
		{MomentOpen, t.Open, func() { c.trading.Store(true) }},
		{MomentPause, t.Pause, nil},
		{MomentContinue, t.Continue, nil},
		{MomentClose, t.Close, func() { c.trading.Store(false) }},
	}
	for _, d := range defaults {
		if _, err := c.RegisterMoment(d.label, d.at, WithMakeup(), WithMomentCallback(d.call)); err != nil {
			return fmt.Errorf("register default moment %s: %w", d.label, err)
		}
	}
	for _, minutes := range c.intervalSet {
		if _, err := c.RegisterInterval(minutes, true); err != nil {
			return fmt.Errorf("register default interval %v: %w", minutes, err)
		}
	}
	return nil
}

func (c *ClockEngine) Name() string {
	return "clock engine"
}

// Now 统一的当前时间, 位于日历时区
func (c *ClockEngine) Now() time.Time {
	return c.now().In(c.loc)
}

// TradingState 是否处于连续交易中
func (c *ClockEngine) TradingState() bool {
	return c.trading.Load()
}

// RegisterInterval 注册间隔事件. 周期必须是整数秒, 同一周期只能注册一次
func (c *ClockEngine) RegisterInterval(minutes float64, tradingOnly bool, opts ...IntervalOption) (*IntervalHandler, error) {
	seconds := minutes * 60
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 1 || seconds != math.Trunc(seconds) {
		return nil, fmt.Errorf("%w: %v minutes", ErrInvalidPeriod, minutes)
	}
	h := &IntervalHandler{
		clock:       c,
		minutes:     minutes,
		seconds:     int64(seconds),
		tradingOnly: tradingOnly,
		call:        func() {},
	}
	for _, opt := range opts {
		opt(h)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.intervals[h.seconds]; ok {
		return nil, fmt.Errorf("%w: %v minutes", ErrDuplicateInterval, minutes)
	}
	c.intervals[h.seconds] = h
	return h, nil
}

// RegisterMoment 注册每日 (缺省每个交易日) 固定时刻事件
// 未设置 makeup 时, 已过期的时刻直接顺延到下一次, 不做补发
func (c *ClockEngine) RegisterMoment(label string, at calendar.TimeOfDay, opts ...MomentOption) (*MomentHandler, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: empty label", ErrInvalidMoment)
	}
	if !at.Valid() {
		return nil, fmt.Errorf("%w: time of day %s", ErrInvalidMoment, at)
	}
	h := &MomentHandler{
		clock:          c,
		label:          label,
		at:             at,
		tradingDayOnly: true,
		call:           func() {},
	}
	for _, opt := range opts {
		opt(h)
	}

	now := c.Now()
	h.next = at.On(now)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !h.makeup {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		active, err := h.activeAt(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("register moment %s: %w", label, err)
		}
		if active {
			if err = h.advance(ctx, now); err != nil {
				return nil, fmt.Errorf("register moment %s: %w", label, err)
			}
		}
	}
	c.insertMoment(h)
	return h, nil
}

// insertMoment 按 next 降序插入, 调用方持有 c.mu
func (c *ClockEngine) insertMoment(h *MomentHandler) {
	idx := sort.Search(len(c.moments), func(i int) bool {
		return !c.moments[i].next.After(h.next)
	})
	c.moments = slices.Insert(c.moments, idx, h)
}

// Intervals 按周期升序
func (c *ClockEngine) Intervals() []*IntervalHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	hs := lo.Values(c.intervals)
	slices.SortFunc(hs, func(a, b *IntervalHandler) int {
		return int(a.seconds - b.seconds)
	})
	return hs
}

// Moments 队列快照, 从队头 (最晚) 到队尾 (最早)
func (c *ClockEngine) Moments() []*MomentHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.moments)
}

func (c *ClockEngine) Start() error {
	if err := c.worker.start(c.loop); err != nil {
		return err
	}
	c.log.Info().
		Bool("trading", c.TradingState()).
		Dur("tick", c.tick).
		Msg("clock engine started")
	return nil
}

func (c *ClockEngine) Stop() error {
	err := c.worker.stop(func() {
		c.log.Warn().Msg("clock engine stop timed out")
	})
	if err == nil {
		c.log.Info().Msg("clock engine stopped")
	}
	return err
}

func (c *ClockEngine) Run(ctx context.Context) error {
	return run(ctx, c, c.worker.doneChan())
}

func (c *ClockEngine) loop(ctx context.Context) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		c.handle(ctx, c.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// handle 同一秒只处理一次
func (c *ClockEngine) handle(ctx context.Context, now time.Time) {
	sec := now.Unix()
	c.mu.Lock()
	if sec == c.lastSecond {
		c.mu.Unlock()
		return
	}
	c.lastSecond = sec
	c.mu.Unlock()

	trade, err := c.cal.IsTradeDate(ctx, now)
	if err != nil {
		c.log.Warn().Err(err).Time("now", now).Msg("calendar unavailable, skip tick")
		return
	}
	if !trade {
		// 假日暂停时钟引擎
		return
	}
	c.fireIntervals(now)
	c.fireMoments(ctx, now)
}

func (c *ClockEngine) fireIntervals(now time.Time) {
	c.mu.Lock()
	handlers := lo.Values(c.intervals)
	c.mu.Unlock()

	for _, h := range handlers {
		if !h.activeAt(now) {
			continue
		}
		h.call()
		c.publish(h.payload(c.TradingState()))
	}
}

// fireMoments 从队尾取出到期的处理器, 触发后重新计算时间放回队列
// 遇到第一个未到期的处理器即停止, 每个处理器每次最多触发一次
func (c *ClockEngine) fireMoments(ctx context.Context, now time.Time) {
	c.mu.Lock()
	limit := len(c.moments)
	c.mu.Unlock()

	for i := 0; i < limit; i++ {
		c.mu.Lock()
		if len(c.moments) == 0 {
			c.mu.Unlock()
			return
		}
		h := c.moments[len(c.moments)-1]
		active, err := h.activeAt(ctx, now)
		if err != nil || !active {
			c.mu.Unlock()
			if err != nil {
				c.log.Warn().Err(err).Str("moment", h.label).Msg("failed to check moment")
			}
			return
		}
		c.moments = c.moments[:len(c.moments)-1]
		c.mu.Unlock()

		h.call()
		c.publish(h.payload(c.TradingState()))

		c.mu.Lock()
		if err = h.advance(ctx, now); err != nil {
			// 无法确定下一个交易日时顺延一天, 避免同一时刻重复触发
			c.log.Error().Err(err).Str("moment", h.label).Msg("failed to compute next fire time")
			h.next = h.at.On(h.next.AddDate(0, 0, 1))
		}
		c.insertMoment(h)
		next := h.next
		c.mu.Unlock()

		c.log.Debug().Str("moment", h.label).Time("next", next).Msg("moment fired")
	}
}

func (c *ClockEngine) publish(p ClockPayload) {
	if err := c.bus.Publish(NewEvent(p)); err != nil {
		c.log.Warn().Err(err).Str("clock", p.Label).Msg("failed to publish clock event")
	}
}
