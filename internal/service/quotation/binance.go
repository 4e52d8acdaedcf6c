package quotation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var _ Source = (*Binance)(nil)

// Binance 币安现货最新价, 代码即交易对 (BTCUSDT)
type Binance struct {
	cli *binance.Client
	now func() time.Time
}

func NewBinance(cli *binance.Client) *Binance {
	return &Binance{cli: cli, now: time.Now}
}

func (b *Binance) Name() string {
	return "binance"
}

func (b *Binance) Fetch(ctx context.Context, codes []string) (Snapshot, error) {
	if len(codes) == 0 {
		return Snapshot{}, nil
	}
	symbols := lo.Uniq(lo.Map(codes, func(c string, _ int) string {
		return strings.ToUpper(c)
	}))

	prices, err := b.cli.NewListPricesService().Symbols(symbols).Do(ctx)
	if err != nil {
		return nil, fetchError(b.Name(), err)
	}

	now := b.now()
	snapshot := make(Snapshot, len(prices))
	for _, p := range prices {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fetchError(b.Name(), fmt.Errorf("%w: price %q of %s", ErrBadResponse, p.Price, p.Symbol))
		}
		snapshot[p.Symbol] = Quote{
			Code: p.Symbol,
			Name: p.Symbol,
			Now:  price,
			Time: now,
		}
	}
	return snapshot, nil
}

var _ HistorySource = (*BinanceHistory)(nil)

// BinanceHistory 币安日线, 用于加密货币的回放
type BinanceHistory struct {
	cli      *binance.Client
	interval string
}

func NewBinanceHistory(cli *binance.Client) *BinanceHistory {
	return &BinanceHistory{cli: cli, interval: "1d"}
}

func (b *BinanceHistory) Name() string {
	return "binance"
}

func (b *BinanceHistory) History(ctx context.Context, code string, begin, end time.Time) ([]Bar, error) {
	svc := b.cli.NewKlinesService().Symbol(strings.ToUpper(code)).Interval(b.interval)
	if !begin.IsZero() {
		svc.StartTime(begin.UnixMilli())
	}
	if !end.IsZero() {
		svc.EndTime(end.UnixMilli())
	}
	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, fetchError(b.Name(), err)
	}
	return convertKlines(klines)
}

func convertKlines(klines []*binance.Kline) ([]Bar, error) {
	bars := make([]Bar, 0, len(klines))
	for _, k := range klines {
		bar := Bar{Time: time.UnixMilli(k.OpenTime)}
		var err error
		if bar.Open, err = decimal.NewFromString(k.Open); err != nil {
			return nil, fmt.Errorf("%w: kline open %q", ErrBadResponse, k.Open)
		}
		if bar.Close, err = decimal.NewFromString(k.Close); err != nil {
			return nil, fmt.Errorf("%w: kline close %q", ErrBadResponse, k.Close)
		}
		if bar.High, err = decimal.NewFromString(k.High); err != nil {
			return nil, fmt.Errorf("%w: kline high %q", ErrBadResponse, k.High)
		}
		if bar.Low, err = decimal.NewFromString(k.Low); err != nil {
			return nil, fmt.Errorf("%w: kline low %q", ErrBadResponse, k.Low)
		}
		if bar.Volume, err = decimal.NewFromString(k.Volume); err != nil {
			return nil, fmt.Errorf("%w: kline volume %q", ErrBadResponse, k.Volume)
		}
		if !bar.Open.IsZero() {
			bar.Percent = bar.Close.Sub(bar.Open).Div(bar.Open).Mul(decimal.NewFromInt(100)).Round(2)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
