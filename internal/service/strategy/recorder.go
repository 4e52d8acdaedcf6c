package strategy

import (
	"context"
	"fmt"

	"github.com/darknessitachi/pquant/internal/entity"
	"github.com/darknessitachi/pquant/internal/repo"
	"github.com/darknessitachi/pquant/internal/service/engine"
	"github.com/darknessitachi/pquant/internal/service/quotation"
	"github.com/samber/lo"
)

// Recorder 把每次行情快照落库, 供回放使用
type Recorder struct {
	Base
	repo repo.QuoteRepo
}

func NewRecorder(repo repo.QuoteRepo) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Name() string {
	return "recorder"
}

func (r *Recorder) OnQuotation(ctx context.Context, p engine.QuotationPayload) error {
	if len(p.Snapshot) == 0 {
		return nil
	}
	records := lo.Map(p.Snapshot.Codes(), func(code string, _ int) entity.Quote {
		return quotation.Record(p.Source, p.Snapshot[code])
	})
	if err := r.repo.Create(ctx, records...); err != nil {
		return fmt.Errorf("record %d quotes: %w", len(records), err)
	}
	return nil
}
