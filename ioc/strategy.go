package ioc

import (
	"github.com/darknessitachi/pquant/internal/repo"
	"github.com/darknessitachi/pquant/internal/service/notification"
	"github.com/darknessitachi/pquant/internal/service/strategy"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type strategyConfig struct {
	Recorder      bool                  `mapstructure:"recorder"`
	SessionNotify bool                  `mapstructure:"session_notify"`
	Reviewer      bool                  `mapstructure:"reviewer"`
	Grid          []strategy.GridConfig `mapstructure:"grid"`
}

func loadStrategyConfig() strategyConfig {
	var cfg strategyConfig
	if err := viper.UnmarshalKey("strategy", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Strategies 启用的策略及其需要订阅的代码
type Strategies struct {
	List  []strategy.Strategy
	Codes []string
}

func InitStrategies(quoteRepo repo.QuoteRepo, notifier notification.Notifier, l zerolog.Logger) Strategies {
	cfg := loadStrategyConfig()

	var res Strategies
	if grid := initGrid(cfg.Grid, l); grid != nil {
		res.List = append(res.List, grid)
		res.Codes = append(res.Codes, grid.Codes()...)
	}
	if cfg.Recorder {
		res.List = append(res.List, strategy.NewRecorder(quoteRepo))
	}
	if cfg.SessionNotify {
		res.List = append(res.List, strategy.NewSessionNotifier(notifier))
	}
	if cfg.Reviewer {
		res.List = append(res.List, strategy.NewReviewer(InitLLM(),
			strategy.WithReviewerLogger(l),
			strategy.WithReviewNotifier(notifier),
		))
	}
	return res
}

// InitFlashbackStrategies 回放只挂载网格策略
func InitFlashbackStrategies(l zerolog.Logger) []strategy.Strategy {
	if grid := initGrid(loadStrategyConfig().Grid, l); grid != nil {
		return []strategy.Strategy{grid}
	}
	return nil
}

func initGrid(configs []strategy.GridConfig, l zerolog.Logger) *strategy.Grid {
	if len(configs) == 0 {
		return nil
	}
	grid, err := strategy.NewGrid(configs,
		strategy.WithGridLogger(l),
		strategy.WithSignalHandler(func(s strategy.Signal) {
			l.Info().
				Str("code", s.Code).
				Str("side", string(s.Side)).
				Stringer("price", s.Price).
				Stringer("amount", s.Amount).
				Int("level", s.Level).
				Time("at", s.Time).
				Msg("grid signal")
		}),
	)
	if err != nil {
		panic(err)
	}
	return grid
}
