package ioc

import (
	"fmt"
	"time"

	"github.com/darknessitachi/pquant/internal/repo"
	"github.com/darknessitachi/pquant/internal/service/calendar"
	"github.com/darknessitachi/pquant/internal/service/engine"
	"github.com/darknessitachi/pquant/internal/service/quotation"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

func InitBus(l zerolog.Logger) *engine.Bus {
	type Config struct {
		Capacity     int           `mapstructure:"capacity"`
		DrainTimeout time.Duration `mapstructure:"drain_timeout"`
	}

	// 零值交给 engine 的缺省值
	var cfg Config
	if err := viper.UnmarshalKey("bus", &cfg); err != nil {
		panic(err)
	}
	return engine.NewBus(cfg.Capacity,
		engine.WithBusLogger(l),
		engine.WithDrainTimeout(cfg.DrainTimeout),
	)
}

func InitClock(bus *engine.Bus, cal calendar.Calendar, l zerolog.Logger) *engine.ClockEngine {
	type Config struct {
		Tick      time.Duration `mapstructure:"tick"`
		Intervals []float64     `mapstructure:"intervals"`
		Open      string        `mapstructure:"open"`
		Pause     string        `mapstructure:"pause"`
		Continue  string        `mapstructure:"continue"`
		Close     string        `mapstructure:"close"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("clock", &cfg); err != nil {
		panic(err)
	}

	opts := []engine.ClockOption{
		engine.WithClockLogger(l),
		engine.WithTick(cfg.Tick),
		engine.WithMomentTimes(engine.MomentTimes{
			Open:     timeOfDay(cfg.Open, engine.DefaultMomentTimes.Open),
			Pause:    timeOfDay(cfg.Pause, engine.DefaultMomentTimes.Pause),
			Continue: timeOfDay(cfg.Continue, engine.DefaultMomentTimes.Continue),
			Close:    timeOfDay(cfg.Close, engine.DefaultMomentTimes.Close),
		}),
	}
	if viper.IsSet("clock.intervals") {
		opts = append(opts, engine.WithDefaultIntervals(cfg.Intervals...))
	}

	clock, err := engine.NewClockEngine(bus, cal, opts...)
	if err != nil {
		panic(err)
	}
	return clock
}

func timeOfDay(s string, fallback calendar.TimeOfDay) calendar.TimeOfDay {
	if s == "" {
		return fallback
	}
	t, err := calendar.ParseTimeOfDay(s)
	if err != nil {
		panic(fmt.Errorf("clock: %w", err))
	}
	return t
}

type quotationConfig struct {
	Source      string        `mapstructure:"source"`
	Codes       []string      `mapstructure:"codes"`
	Interval    time.Duration `mapstructure:"interval"`
	TradingOnly bool          `mapstructure:"trading_only"`
}

func loadQuotationConfig() quotationConfig {
	cfg := quotationConfig{Source: "sina"}
	if err := viper.UnmarshalKey("quotation", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

// InitQuotationSource name 为空时取配置, binance 客户端只在用到时创建
func InitQuotationSource(cli *resty.Client, loc *time.Location, name string) quotation.Source {
	cfg := loadQuotationConfig()
	if name != "" {
		cfg.Source = name
	}
	clients := quotation.Clients{HTTP: cli, Location: loc}
	if cfg.Source == "binance" {
		clients.Binance = InitBinanceCli()
	}
	src, err := quotation.ByName(cfg.Source, clients)
	if err != nil {
		panic(err)
	}
	return src
}

// InitQuotationEngine 订阅配置中的代码与策略关心的代码
func InitQuotationEngine(bus *engine.Bus, src quotation.Source, clock *engine.ClockEngine, l zerolog.Logger, codes ...string) *engine.QuotationEngine {
	cfg := loadQuotationConfig()
	opts := []engine.QuotationOption{
		engine.WithQuotationLogger(l),
		engine.WithPushInterval(cfg.Interval),
		engine.WithCodes(append(cfg.Codes, codes...)...),
	}
	if cfg.TradingOnly {
		opts = append(opts, engine.WithTradingGate(clock))
	}
	return engine.NewQuotationEngine(bus, src, opts...)
}

type flashbackConfig struct {
	Source   string        `mapstructure:"source"`
	Interval time.Duration `mapstructure:"interval"`
}

func loadFlashbackConfig() flashbackConfig {
	cfg := flashbackConfig{Source: "xueqiu", Interval: time.Second}
	if err := viper.UnmarshalKey("flashback", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func InitHistorySource(cli *resty.Client, quoteRepo repo.QuoteRepo, name string) quotation.HistorySource {
	cfg := loadFlashbackConfig()
	if name != "" {
		cfg.Source = name
	}
	switch cfg.Source {
	case "xueqiu":
		return quotation.NewXueqiu(cli)
	case "recorded":
		return quotation.NewRecorded(quoteRepo)
	case "binance":
		return quotation.NewBinanceHistory(InitBinanceCli())
	default:
		panic(fmt.Errorf("%w: %q", quotation.ErrUnknownSource, cfg.Source))
	}
}

func InitFlashbackEngine(bus *engine.Bus, src quotation.HistorySource, l zerolog.Logger, code string, begin, end time.Time, interval time.Duration) *engine.FlashbackEngine {
	cfg := loadFlashbackConfig()
	if interval > 0 {
		cfg.Interval = interval
	}
	return engine.NewFlashbackEngine(bus, src, code, begin, end,
		engine.WithFlashbackLogger(l),
		engine.WithFlashbackInterval(cfg.Interval),
	)
}
