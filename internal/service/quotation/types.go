package quotation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	ErrBadResponse   = errors.New("bad quotation response")
	ErrUnknownSource = errors.New("unknown quotation source")
)

// Level 一档盘口
type Level struct {
	Price  decimal.Decimal
	Volume int64
}

// Quote 规范化后的单个标的行情
type Quote struct {
	Code     string
	Name     string
	Open     decimal.Decimal
	Close    decimal.Decimal // 昨收
	Now      decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Buy      decimal.Decimal // 买一价
	Sell     decimal.Decimal // 卖一价
	Turnover int64           // 成交量 (股)
	Volume   decimal.Decimal // 成交额
	Bids     []Level
	Asks     []Level
	Time     time.Time
}

// Snapshot 一次拉取的全部订阅标的, 以代码为键
type Snapshot map[string]Quote

func (s Snapshot) Codes() []string {
	codes := lo.Keys(s)
	slices.Sort(codes)
	return codes
}

// Bar 历史 K 线
type Bar struct {
	Time    time.Time
	Open    decimal.Decimal
	High    decimal.Decimal
	Low     decimal.Decimal
	Close   decimal.Decimal
	Volume  decimal.Decimal
	Percent decimal.Decimal // 涨跌幅 %
}

// Source 行情数据源
type Source interface {
	Name() string
	Fetch(ctx context.Context, codes []string) (Snapshot, error)
}

// HistorySource 历史行情数据源, 返回有限的按时间升序的序列
type HistorySource interface {
	Name() string
	History(ctx context.Context, code string, begin, end time.Time) ([]Bar, error)
}

// FetchError 数据源拉取失败
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch quotation from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchError(source string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Source: source, Err: err}
}
