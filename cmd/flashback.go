package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darknessitachi/pquant/internal/repo"
	"github.com/darknessitachi/pquant/internal/schedule"
	"github.com/darknessitachi/pquant/internal/service/calendar"
	"github.com/darknessitachi/pquant/internal/service/strategy"
	"github.com/darknessitachi/pquant/ioc"
	"github.com/spf13/cobra"
)

var flashbackCmd = &cobra.Command{
	Use:   "flashback",
	Short: "按历史日线回放行情",
	Example: `  pquant flashback --code 600887 --begin 2024-01-02 --end 2024-06-28
  pquant flashback --code BTCUSDT --source binance`,
	RunE: runFlashback,
}

func init() {
	flashbackCmd.Flags().String("code", "", "code to replay")
	flashbackCmd.Flags().String("begin", "", "first date, 2006-01-02 or 20060102")
	flashbackCmd.Flags().String("end", "", "last date, 2006-01-02 or 20060102")
	flashbackCmd.Flags().String("source", "", "history source: xueqiu, recorded or binance")
	flashbackCmd.Flags().Duration("interval", 0, "pause between bars")
	_ = flashbackCmd.MarkFlagRequired("code")
	rootCmd.AddCommand(flashbackCmd)
}

func runFlashback(cmd *cobra.Command, _ []string) error {
	code := flagString(cmd.Flags(), "code")
	beginStr := flagString(cmd.Flags(), "begin")
	endStr := flagString(cmd.Flags(), "end")
	interval, _ := cmd.Flags().GetDuration("interval")

	loc := ioc.InitLocation()
	begin, err := parseOptionalDate(beginStr, loc)
	if err != nil {
		return fmt.Errorf("--begin: %w", err)
	}
	end, err := parseOptionalDate(endStr, loc)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	if !end.IsZero() {
		// 包含结束当天
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !begin.IsZero() && !end.IsZero() && end.Before(begin) {
		return fmt.Errorf("end %s is before begin %s", endStr, beginStr)
	}

	l := ioc.InitLogger()
	db := ioc.InitDB()
	bus := ioc.InitBus(l)
	src := ioc.InitHistorySource(ioc.InitHTTPCli(), repo.NewQuoteRepo(db), flagString(cmd.Flags(), "source"))
	flashback := ioc.InitFlashbackEngine(bus, src, l, code, begin, end, interval)

	strategies := ioc.InitFlashbackStrategies(l)
	for _, s := range strategies {
		strategy.Register(bus, s)
	}
	l.Info().Str("code", code).Str("source", src.Name()).Int("strategies", len(strategies)).Msg("flashback ready")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return schedule.NewGroup(l).Add(bus, flashback).Run(ctx)
}

func parseOptionalDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return calendar.ParseDate(s, loc)
}
