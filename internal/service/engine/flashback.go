package engine

import (
	"context"
	"time"

	"github.com/darknessitachi/pquant/internal/service/quotation"
	"github.com/rs/zerolog"
)

const defaultFlashbackInterval = time.Second

var _ Engine = (*FlashbackEngine)(nil)

// FlashbackEngine 历史回放, 按固定节奏逐根推送 flashback 事件, 数据耗尽后自行退出
type FlashbackEngine struct {
	bus      Publisher
	source   quotation.HistorySource
	log      zerolog.Logger
	code     string
	begin    time.Time
	end      time.Time
	interval time.Duration
	wait     func(ctx context.Context, d time.Duration) bool

	*worker
}

type FlashbackOption func(e *FlashbackEngine)

func WithFlashbackLogger(l zerolog.Logger) FlashbackOption {
	return func(e *FlashbackEngine) {
		e.log = l.With().
			Str("component", "flashback_engine").
			Str("source", e.source.Name()).
			Str("code", e.code).
			Logger()
	}
}

// WithFlashbackInterval 两根 bar 之间的间隔
func WithFlashbackInterval(d time.Duration) FlashbackOption {
	return func(e *FlashbackEngine) {
		if d > 0 {
			e.interval = d
		}
	}
}

func WithFlashbackStopTimeout(d time.Duration) FlashbackOption {
	return func(e *FlashbackEngine) {
		if d > 0 {
			e.worker.stopTimeout = d
		}
	}
}

func NewFlashbackEngine(bus Publisher, source quotation.HistorySource, code string, begin, end time.Time, opts ...FlashbackOption) *FlashbackEngine {
	e := &FlashbackEngine{
		bus:      bus,
		source:   source,
		log:      zerolog.Nop(),
		code:     code,
		begin:    begin,
		end:      end,
		interval: defaultFlashbackInterval,
		wait:     sleep,
		worker:   newWorker(defaultStopTimeout),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *FlashbackEngine) Name() string {
	return "flashback engine"
}

func (e *FlashbackEngine) Start() error {
	if err := e.worker.start(e.loop); err != nil {
		return err
	}
	e.log.Info().
		Time("begin", e.begin).
		Time("end", e.end).
		Dur("interval", e.interval).
		Msg("flashback engine started")
	return nil
}

func (e *FlashbackEngine) Stop() error {
	err := e.worker.stop(func() {
		e.log.Warn().Msg("flashback engine stop timed out")
	})
	if err == nil {
		e.log.Info().Msg("flashback engine stopped")
	}
	return err
}

// Run 阻塞到回放结束或 ctx 取消
func (e *FlashbackEngine) Run(ctx context.Context) error {
	return run(ctx, e, e.worker.doneChan())
}

// Done 回放结束后关闭
func (e *FlashbackEngine) Done() <-chan struct{} {
	return e.worker.doneChan()
}

func (e *FlashbackEngine) loop(ctx context.Context) {
	bars, ok := e.load(ctx)
	if !ok {
		return
	}
	if len(bars) == 0 {
		e.log.Info().Msg("no history in range, nothing to replay")
		return
	}

	for i, bar := range bars {
		if ctx.Err() != nil {
			e.log.Info().Int("replayed", i).Int("total", len(bars)).Msg("flashback interrupted")
			return
		}
		err := e.bus.Publish(NewEvent(FlashbackPayload{
			Code:  e.code,
			Index: i,
			Total: len(bars),
			Bar:   bar,
		}))
		if err != nil {
			e.log.Warn().Err(err).Int("index", i).Msg("failed to publish flashback event")
		}
		if i < len(bars)-1 && !e.wait(ctx, e.interval) {
			e.log.Info().Int("replayed", i+1).Int("total", len(bars)).Msg("flashback interrupted")
			return
		}
	}
	e.log.Info().Int("total", len(bars)).Msg("flashback finished")
}

// load 拉取历史数据, 失败后等待一个间隔重试, 直到成功或被停止
func (e *FlashbackEngine) load(ctx context.Context) ([]quotation.Bar, bool) {
	for {
		bars, err := e.source.History(ctx, e.code, e.begin, e.end)
		if err == nil {
			return bars, true
		}
		if ctx.Err() != nil {
			return nil, false
		}
		e.log.Error().Err(err).Msg("failed to load history")
		if !e.wait(ctx, e.interval) {
			return nil, false
		}
	}
}
