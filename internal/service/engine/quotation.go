package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/darknessitachi/pquant/internal/service/quotation"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const defaultPushInterval = 60 * time.Second

var _ Engine = (*QuotationEngine)(nil)

// QuotationEngine 按固定间隔拉取订阅标的的行情并推送 quotation 事件
// 拉取失败只记录日志, 等待一个间隔后重试
type QuotationEngine struct {
	bus      Publisher
	source   quotation.Source
	log      zerolog.Logger
	interval time.Duration
	gate     TradingStater
	wait     func(ctx context.Context, d time.Duration) bool

	mu    sync.Mutex
	codes []string

	*worker
}

type QuotationOption func(e *QuotationEngine)

func WithQuotationLogger(l zerolog.Logger) QuotationOption {
	return func(e *QuotationEngine) {
		e.log = l.With().Str("component", "quotation_engine").Str("source", e.source.Name()).Logger()
	}
}

// WithPushInterval 两次拉取之间的等待时间
func WithPushInterval(d time.Duration) QuotationOption {
	return func(e *QuotationEngine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithTradingGate 非交易时段跳过拉取
func WithTradingGate(g TradingStater) QuotationOption {
	return func(e *QuotationEngine) {
		e.gate = g
	}
}

func WithCodes(codes ...string) QuotationOption {
	return func(e *QuotationEngine) {
		e.Subscribe(codes...)
	}
}

func WithQuotationStopTimeout(d time.Duration) QuotationOption {
	return func(e *QuotationEngine) {
		if d > 0 {
			e.worker.stopTimeout = d
		}
	}
}

func NewQuotationEngine(bus Publisher, source quotation.Source, opts ...QuotationOption) *QuotationEngine {
	e := &QuotationEngine{
		bus:      bus,
		source:   source,
		log:      zerolog.Nop(),
		interval: defaultPushInterval,
		wait:     sleep,
		worker:   newWorker(defaultStopTimeout),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *QuotationEngine) Name() string {
	return "quotation engine"
}

// Subscribe 加入订阅, 已订阅的代码忽略
func (e *QuotationEngine) Subscribe(codes ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, code := range codes {
		if code == "" || slices.Contains(e.codes, code) {
			continue
		}
		e.codes = append(e.codes, code)
	}
}

func (e *QuotationEngine) Unsubscribe(codes ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = lo.Without(e.codes, codes...)
}

// Watching 当前订阅列表的副本, 保持订阅顺序
func (e *QuotationEngine) Watching() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.codes)
}

func (e *QuotationEngine) Start() error {
	if err := e.worker.start(e.loop); err != nil {
		return err
	}
	e.log.Info().
		Dur("interval", e.interval).
		Strs("codes", e.Watching()).
		Msg("quotation engine started")
	return nil
}

// Stop 中断等待; 正在进行的拉取随 ctx 取消返回
func (e *QuotationEngine) Stop() error {
	err := e.worker.stop(func() {
		e.log.Warn().Msg("quotation engine stop timed out, abandoning in-flight fetch")
	})
	if err == nil {
		e.log.Info().Msg("quotation engine stopped")
	}
	return err
}

func (e *QuotationEngine) Run(ctx context.Context) error {
	return run(ctx, e, e.worker.doneChan())
}

func (e *QuotationEngine) loop(ctx context.Context) {
	for {
		_ = e.poll(ctx)
		if !e.wait(ctx, e.interval) {
			return
		}
	}
}

// poll 拉取一次并发布, 返回拉取错误
func (e *QuotationEngine) poll(ctx context.Context) error {
	codes := e.Watching()
	if len(codes) == 0 {
		e.log.Info().Msg("no subscribed codes")
		return nil
	}
	if e.gate != nil && !e.gate.TradingState() {
		e.log.Debug().Msg("market closed, skip fetching")
		return nil
	}

	start := time.Now()
	snapshot, err := e.source.Fetch(ctx, codes)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.log.Error().Err(err).Int("codes", len(codes)).Msg("failed to fetch quotation")
		return err
	}

	err = e.bus.Publish(NewEvent(QuotationPayload{
		Source:   e.source.Name(),
		Snapshot: snapshot,
	}))
	if err != nil {
		e.log.Warn().Err(err).Msg("failed to publish quotation event")
		return nil
	}
	e.log.Debug().
		Int("quotes", len(snapshot)).
		Dur("elapsed", time.Since(start)).
		Msg("quotation published")
	return nil
}
