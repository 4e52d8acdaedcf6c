package quotation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/darknessitachi/pquant/pkg/stockcode"
	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	xueqiuHome = "https://xueqiu.com"
	xueqiuKURL = "https://xueqiu.com/stock/forchartk/stocklist.json"
)

var _ HistorySource = (*Xueqiu)(nil)

// Xueqiu 雪球日 K 线, 首次请求前先访问首页拿 cookie
type Xueqiu struct {
	cli     *resty.Client
	home    string
	api     string
	warmed  bool
	warmMu  sync.Mutex
	nowFunc func() time.Time
}

func NewXueqiu(cli *resty.Client) *Xueqiu {
	return &Xueqiu{
		cli:     cli,
		home:    xueqiuHome,
		api:     xueqiuKURL,
		nowFunc: time.Now,
	}
}

func (x *Xueqiu) Name() string {
	return "xueqiu"
}

type xueqiuBar struct {
	Timestamp int64           `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Percent   decimal.Decimal `json:"percent"`
}

type xueqiuResp struct {
	Success   string      `json:"success"`
	Chartlist []xueqiuBar `json:"chartlist"`
}

func (x *Xueqiu) History(ctx context.Context, code string, begin, end time.Time) ([]Bar, error) {
	if err := x.warmUp(ctx); err != nil {
		return nil, fetchError(x.Name(), err)
	}

	var body xueqiuResp
	resp, err := x.cli.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetQueryParams(map[string]string{
			"symbol": stockcode.Symbol(code),
			"period": "1day",
			"type":   "normal",
			"begin":  fmt.Sprint(begin.UnixMilli()),
			"end":    fmt.Sprint(end.UnixMilli()),
			"_":      fmt.Sprint(x.nowFunc().UnixMilli()),
		}).
		SetResult(&body).
		Get(x.api)
	if err != nil {
		return nil, fetchError(x.Name(), err)
	}
	if resp.IsError() {
		return nil, fetchError(x.Name(), fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode()))
	}

	return lo.Map(body.Chartlist, func(b xueqiuBar, _ int) Bar {
		return Bar{
			Time:    time.UnixMilli(b.Timestamp),
			Open:    b.Open,
			High:    b.High,
			Low:     b.Low,
			Close:   b.Close,
			Volume:  b.Volume,
			Percent: b.Percent,
		}
	}), nil
}

func (x *Xueqiu) warmUp(ctx context.Context) error {
	x.warmMu.Lock()
	defer x.warmMu.Unlock()
	if x.warmed {
		return nil
	}
	resp, err := x.cli.R().SetContext(ctx).Get(x.home)
	if err != nil {
		return fmt.Errorf("xueqiu cookie: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: xueqiu home status %d", ErrBadResponse, resp.StatusCode())
	}
	x.warmed = true
	return nil
}
