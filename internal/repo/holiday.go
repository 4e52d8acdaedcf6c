package repo

import (
	"context"

	"github.com/darknessitachi/pquant/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HolidayRepo interface {
	// Create 已存在的日期会更新备注
	Create(ctx context.Context, holiday entity.Holiday) error
	Exists(ctx context.Context, date string) (bool, error)
	List(ctx context.Context) ([]entity.Holiday, error)
}

type holidayRepo struct {
	db *gorm.DB
}

func NewHolidayRepo(db *gorm.DB) HolidayRepo {
	return &holidayRepo{
		db: db,
	}
}

func (r *holidayRepo) Create(ctx context.Context, holiday entity.Holiday) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"note"}),
	}).Create(&holiday).Error
}

func (r *holidayRepo) Exists(ctx context.Context, date string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Holiday{}).Where("date = ?", date).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *holidayRepo) List(ctx context.Context) ([]entity.Holiday, error) {
	var holidays []entity.Holiday
	err := r.db.WithContext(ctx).Order("date asc").Find(&holidays).Error
	if err != nil {
		return nil, err
	}
	return holidays, nil
}
