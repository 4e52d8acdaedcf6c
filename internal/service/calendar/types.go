package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoTradeDate      = errors.New("no trade date found")
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)

// Calendar 交易日历, 对调用方无副作用
type Calendar interface {
	// IsTradeDate t 所在日期是否为交易日
	IsTradeDate(ctx context.Context, t time.Time) (bool, error)
	// IsTradingHours t 是否处于连续竞价时段, 不判断交易日
	IsTradingHours(ctx context.Context, t time.Time) (bool, error)
	// NextTradeDate t 之后的第一个交易日 (当地零点)
	NextTradeDate(ctx context.Context, t time.Time) (time.Time, error)
	Location() *time.Location
}

// HolidayProvider 节假日数据来源
type HolidayProvider interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

// TimeOfDay 一天中的时刻
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}
}

// ParseTimeOfDay 支持 15:04 与 15:04:05
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 &&
		t.Minute >= 0 && t.Minute < 60 &&
		t.Second >= 0 && t.Second < 60
}

func (t TimeOfDay) Seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// On 把时刻放到 day 所在的日期上, 时区取 day 的时区
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, day.Location())
}

func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Seconds() < o.Seconds()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Of 取 t 的时刻部分
func Of(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// Session 左闭右开的交易时段
type Session struct {
	Begin TimeOfDay
	End   TimeOfDay
}

func (s Session) Contains(t TimeOfDay) bool {
	return !t.Before(s.Begin) && t.Before(s.End)
}

// Midnight t 所在日期的零点
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

const dateKeyLayout = "20060102"

// DateKey 节假日存储使用的日期键
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ParseDate 支持 2006-01-02 与 20060102
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", dateKeyLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
