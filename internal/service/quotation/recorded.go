package quotation

import (
	"context"
	"fmt"
	"time"

	"github.com/darknessitachi/pquant/internal/entity"
	"github.com/darknessitachi/pquant/internal/repo"
	"github.com/darknessitachi/pquant/pkg/decimalx"
	"github.com/shopspring/decimal"
)

var _ HistorySource = (*Recorded)(nil)

// Recorded 从本地记录的快照还原序列, 每条快照对应一根 Bar, 收盘价取当时现价
type Recorded struct {
	repo repo.QuoteRepo
}

func NewRecorded(repo repo.QuoteRepo) *Recorded {
	return &Recorded{repo: repo}
}

func (r *Recorded) Name() string {
	return "recorded"
}

func (r *Recorded) History(ctx context.Context, code string, begin, end time.Time) ([]Bar, error) {
	quotes, err := r.repo.FindByCode(ctx, code, begin, end)
	if err != nil {
		return nil, fetchError(r.Name(), err)
	}
	bars := make([]Bar, 0, len(quotes))
	for _, q := range quotes {
		bar, err := barFromRecord(q)
		if err != nil {
			return nil, fetchError(r.Name(), fmt.Errorf("record %d: %w", q.Id, err))
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func barFromRecord(q entity.Quote) (Bar, error) {
	var p decimalx.Parser
	bar := Bar{
		Time:   q.QuotedAt,
		Open:   p.Decimal(q.Open),
		High:   p.Decimal(q.High),
		Low:    p.Decimal(q.Low),
		Close:  p.Decimal(q.Now),
		Volume: p.Decimal(q.Volume),
	}
	prev := p.Decimal(q.Close)
	if err := p.Err(); err != nil {
		return Bar{}, err
	}
	if !prev.IsZero() {
		bar.Percent = bar.Close.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return bar, nil
}

// Record 转换为入库结构
func Record(source string, q Quote) entity.Quote {
	return entity.Quote{
		Code:     q.Code,
		Name:     q.Name,
		Source:   source,
		Now:      q.Now.String(),
		Open:     q.Open.String(),
		Close:    q.Close.String(),
		High:     q.High.String(),
		Low:      q.Low.String(),
		Turnover: q.Turnover,
		Volume:   q.Volume.String(),
		QuotedAt: q.Time,
	}
}
