package calendar

import (
	"context"
	"time"
)

const maxSearchDays = 365

var (
	// DefaultSessions A股连续竞价时段
	DefaultSessions = []Session{
		{Begin: NewTimeOfDay(9, 15, 0), End: NewTimeOfDay(11, 30, 0)},
		{Begin: NewTimeOfDay(13, 0, 0), End: NewTimeOfDay(15, 0, 0)},
	}

	pauseSession    = Session{Begin: NewTimeOfDay(11, 30, 0), End: NewTimeOfDay(12, 59, 30)}
	continueSession = Session{Begin: NewTimeOfDay(12, 59, 30), End: NewTimeOfDay(13, 0, 0)}
	closingStart    = NewTimeOfDay(14, 54, 30)
	closeTime       = NewTimeOfDay(15, 0, 0)
)

var _ Calendar = (*SessionCalendar)(nil)

// SessionCalendar 周末 + 节假日 + 固定交易时段
type SessionCalendar struct {
	loc      *time.Location
	sessions []Session
	holidays HolidayProvider
}

type Option func(c *SessionCalendar)

func WithSessions(sessions []Session) Option {
	return func(c *SessionCalendar) {
		if len(sessions) > 0 {
			c.sessions = sessions
		}
	}
}

func WithHolidays(p HolidayProvider) Option {
	return func(c *SessionCalendar) {
		c.holidays = p
	}
}

func NewSessionCalendar(loc *time.Location, opts ...Option) *SessionCalendar {
	if loc == nil {
		loc = time.Local
	}
	c := &SessionCalendar{
		loc:      loc,
		sessions: DefaultSessions,
		holidays: StaticHolidays{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SessionCalendar) Location() *time.Location {
	return c.loc
}

func (c *SessionCalendar) IsTradeDate(ctx context.Context, t time.Time) (bool, error) {
	t = t.In(c.loc)
	if isWeekend(t) {
		return false, nil
	}
	holiday, err := c.holidays.IsHoliday(ctx, Midnight(t))
	if err != nil {
		return false, err
	}
	return !holiday, nil
}

func (c *SessionCalendar) IsTradingHours(_ context.Context, t time.Time) (bool, error) {
	tod := Of(t.In(c.loc))
	for _, s := range c.sessions {
		if s.Contains(tod) {
			return true, nil
		}
	}
	return false, nil
}

func (c *SessionCalendar) NextTradeDate(ctx context.Context, t time.Time) (time.Time, error) {
	day := Midnight(t.In(c.loc))
	for i := 0; i < maxSearchDays; i++ {
		day = day.AddDate(0, 0, 1)
		ok, err := c.IsTradeDate(ctx, day)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return day, nil
		}
	}
	return time.Time{}, ErrNoTradeDate
}

// IsPause 午间休市
func (c *SessionCalendar) IsPause(t time.Time) bool {
	return pauseSession.Contains(Of(t.In(c.loc)))
}

// IsContinue 午间开盘前 30 秒
func (c *SessionCalendar) IsContinue(t time.Time) bool {
	return continueSession.Contains(Of(t.In(c.loc)))
}

// IsClosing 收盘前的尾盘阶段
func (c *SessionCalendar) IsClosing(t time.Time) bool {
	tod := Of(t.In(c.loc))
	return !tod.Before(closingStart) && tod.Before(closeTime)
}

// NextTradeTime 距离下一个交易时段开始的时长, 交易中返回 0
func (c *SessionCalendar) NextTradeTime(ctx context.Context, t time.Time) (time.Duration, error) {
	t = t.In(c.loc)
	trade, err := c.IsTradeDate(ctx, t)
	if err != nil {
		return 0, err
	}
	tod := Of(t)
	if trade {
		for _, s := range c.sessions {
			if s.Contains(tod) {
				return 0, nil
			}
			if tod.Before(s.Begin) {
				return s.Begin.On(t).Sub(t), nil
			}
		}
	}
	next, err := c.NextTradeDate(ctx, t)
	if err != nil {
		return 0, err
	}
	return c.sessions[0].Begin.On(next).Sub(t), nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
