package repo

import (
	"github.com/darknessitachi/pquant/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Quote{}, &entity.Holiday{})
}
