package entity

import (
	"time"
)

// Holiday 休市日, Date 格式 20060102
type Holiday struct {
	Id        int64  `gorm:"primaryKey;autoIncrement"`
	Date      string `gorm:"uniqueIndex;size:8"`
	Note      string
	CreatedAt time.Time
}
