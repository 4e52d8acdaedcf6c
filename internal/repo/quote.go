package repo

import (
	"context"
	"time"

	"github.com/darknessitachi/pquant/internal/entity"
	"gorm.io/gorm"
)

type QuoteRepo interface {
	Create(ctx context.Context, quotes ...entity.Quote) error
	// FindByCode 按行情时间升序返回 [begin, end] 内的记录, 零值表示不限
	FindByCode(ctx context.Context, code string, begin, end time.Time) ([]entity.Quote, error)
}

type quoteRepo struct {
	db *gorm.DB
}

func NewQuoteRepo(db *gorm.DB) QuoteRepo {
	return &quoteRepo{
		db: db,
	}
}

func (r *quoteRepo) Create(ctx context.Context, quotes ...entity.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&quotes).Error
}

func (r *quoteRepo) FindByCode(ctx context.Context, code string, begin, end time.Time) ([]entity.Quote, error) {
	var quotes []entity.Quote
	q := r.db.WithContext(ctx).Where("code = ?", code)
	if !begin.IsZero() {
		q = q.Where("quoted_at >= ?", begin)
	}
	if !end.IsZero() {
		q = q.Where("quoted_at <= ?", end)
	}
	err := q.Order("quoted_at asc").Order("id asc").Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}
