package quotation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/darknessitachi/pquant/pkg/decimalx"
	"github.com/darknessitachi/pquant/pkg/stockcode"
	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const (
	sinaURL       = "http://hq.sinajs.cn/"
	sinaReferer   = "https://finance.sina.com.cn"
	sinaBatchSize = 800
	// 名称之后的字段数: 29 个数字 + 日期 + 时间
	sinaFieldCount = 31
)

var _ Source = (*Sina)(nil)

// Sina 新浪实时行情
type Sina struct {
	cli *resty.Client
	url string
	loc *time.Location
}

func NewSina(cli *resty.Client, loc *time.Location) *Sina {
	if loc == nil {
		loc = time.Local
	}
	return &Sina{cli: cli, url: sinaURL, loc: loc}
}

func (s *Sina) Name() string {
	return "sina"
}

func (s *Sina) Fetch(ctx context.Context, codes []string) (Snapshot, error) {
	if len(codes) == 0 {
		return Snapshot{}, nil
	}
	symbols := lo.Uniq(lo.Map(codes, func(c string, _ int) string {
		return stockcode.Symbol(c)
	}))

	var (
		mu       sync.Mutex
		snapshot = make(Snapshot, len(symbols))
	)
	eg, ctx := errgroup.WithContext(ctx)
	for _, batch := range lo.Chunk(symbols, sinaBatchSize) {
		batch := batch
		eg.Go(func() error {
			part, err := s.fetchBatch(ctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for code, q := range part {
				snapshot[code] = q
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fetchError(s.Name(), err)
	}
	return snapshot, nil
}

func (s *Sina) fetchBatch(ctx context.Context, symbols []string) (Snapshot, error) {
	resp, err := s.cli.R().
		SetContext(ctx).
		SetHeader("Referer", sinaReferer).
		SetHeader("Accept-Encoding", "gzip").
		SetQueryParam("format", "text").
		SetQueryParam("list", strings.Join(symbols, ",")).
		Get(s.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode())
	}
	body, err := simplifiedchinese.GBK.NewDecoder().Bytes(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decode gbk: %w", err)
	}
	return parseSina(string(body), s.loc)
}

// parseSina 解析 format=text 的响应, 每行一个标的:
// sh600887=伊利股份,open,close,now,high,low,buy,sell,turnover,volume,bid1_volume,bid1,...,ask5,date,time
// 停牌或无效代码的行直接跳过
func parseSina(body string, loc *time.Location) (Snapshot, error) {
	snapshot := make(Snapshot)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		symbol, rest, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields := strings.Split(rest, ",")
		if len(fields) < sinaFieldCount+1 || fields[0] == "" {
			continue
		}
		q, err := parseSinaFields(stockcode.Strip(symbol), fields, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadResponse, symbol, err)
		}
		snapshot[q.Code] = q
	}
	return snapshot, nil
}

func parseSinaFields(code string, fields []string, loc *time.Location) (Quote, error) {
	var p decimalx.Parser
	num := fields[1:]

	q := Quote{
		Code:     code,
		Name:     fields[0],
		Open:     p.Decimal(num[0]),
		Close:    p.Decimal(num[1]),
		Now:      p.Decimal(num[2]),
		High:     p.Decimal(num[3]),
		Low:      p.Decimal(num[4]),
		Buy:      p.Decimal(num[5]),
		Sell:     p.Decimal(num[6]),
		Turnover: p.Int(num[7]),
		Volume:   p.Decimal(num[8]),
		Bids:     make([]Level, 0, 5),
		Asks:     make([]Level, 0, 5),
	}
	for i := 0; i < 5; i++ {
		q.Bids = append(q.Bids, Level{Volume: p.Int(num[9+2*i]), Price: p.Decimal(num[10+2*i])})
		q.Asks = append(q.Asks, Level{Volume: p.Int(num[19+2*i]), Price: p.Decimal(num[20+2*i])})
	}
	if err := p.Err(); err != nil {
		return Quote{}, err
	}

	ts, err := time.ParseInLocation("2006-01-02 15:04:05", num[29]+" "+num[30], loc)
	if err != nil {
		return Quote{}, err
	}
	q.Time = ts
	return q, nil
}
