package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/darknessitachi/pquant/internal/repo"
	"github.com/darknessitachi/pquant/internal/schedule"
	"github.com/darknessitachi/pquant/internal/service/strategy"
	"github.com/darknessitachi/pquant/ioc"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "启动时钟, 行情引擎与策略",
	RunE:  runEngines,
}

func init() {
	runCmd.Flags().StringSlice("codes", nil, "extra codes to watch, e.g. 600887,000001")
	runCmd.Flags().String("source", "", "quotation source: sina or binance, overrides config")
	rootCmd.AddCommand(runCmd)
}

func runEngines(cmd *cobra.Command, _ []string) error {
	l := ioc.InitLogger()
	db := ioc.InitDB()
	httpCli := ioc.InitHTTPCli()
	loc := ioc.InitLocation()

	quoteRepo := repo.NewQuoteRepo(db)
	cal := ioc.InitCalendar(loc, repo.NewHolidayRepo(db), httpCli)

	bus := ioc.InitBus(l)
	clock := ioc.InitClock(bus, cal, l)
	strategies := ioc.InitStrategies(quoteRepo, ioc.InitNotifier(l), l)
	extra, _ := cmd.Flags().GetStringSlice("codes")
	source := ioc.InitQuotationSource(httpCli, loc, flagString(cmd.Flags(), "source"))
	quoteEngine := ioc.InitQuotationEngine(bus, source, clock, l, append(extra, strategies.Codes...)...)

	for _, s := range strategies.List {
		strategy.Register(bus, s)
		l.Info().Str("strategy", s.Name()).Msg("strategy registered")
	}
	l.Info().Strs("codes", quoteEngine.Watching()).Bool("trading", clock.TradingState()).Msg("engines ready")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 总线最先启动, 最后停止, 保证退出前排空事件
	return schedule.NewGroup(l).Add(bus, clock, quoteEngine).Run(ctx)
}
