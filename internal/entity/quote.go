package entity

import (
	"time"
)

// Quote 记录下来的单个标的行情快照, 价格以字符串保存避免精度丢失
type Quote struct {
	Id       int64  `gorm:"primaryKey;autoIncrement"`
	Code     string `gorm:"index:quote_code_time_idx"`
	Name     string
	Source   string
	Now      string
	Open     string
	Close    string // 昨收
	High     string
	Low      string
	Turnover int64
	Volume   string
	// 行情自身的时间, 不是入库时间
	QuotedAt  time.Time `gorm:"index:quote_code_time_idx"`
	CreatedAt time.Time
}
