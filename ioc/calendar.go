package ioc

import (
	"time"
	_ "time/tzdata"

	"github.com/darknessitachi/pquant/internal/repo"
	"github.com/darknessitachi/pquant/internal/service/calendar"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"
)

type calendarConfig struct {
	Location string   `mapstructure:"location"`
	Holidays []string `mapstructure:"holidays"`
	Remote   struct {
		Enabled bool   `mapstructure:"enabled"`
		API     string `mapstructure:"api"`
	} `mapstructure:"remote"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func loadCalendarConfig() calendarConfig {
	cfg := calendarConfig{Location: "Asia/Shanghai", CacheTTL: 12 * time.Hour}
	if err := viper.UnmarshalKey("calendar", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

// InitLocation 交易所所在时区
func InitLocation() *time.Location {
	loc, err := time.LoadLocation(loadCalendarConfig().Location)
	if err != nil {
		panic(err)
	}
	return loc
}

// InitCalendar 节假日依次查配置, 数据库, 远程接口, 结果按天缓存
func InitCalendar(loc *time.Location, holidayRepo repo.HolidayRepo, cli *resty.Client) *calendar.SessionCalendar {
	cfg := loadCalendarConfig()

	static, err := calendar.NewStaticHolidays(loc, cfg.Holidays...)
	if err != nil {
		panic(err)
	}
	providers := calendar.AnyHolidays{static, calendar.NewStoredHolidays(holidayRepo)}
	if cfg.Remote.Enabled {
		providers = append(providers, calendar.NewRemoteHolidays(cli, cfg.Remote.API))
	}
	return calendar.NewSessionCalendar(loc,
		calendar.WithHolidays(calendar.NewCachedHolidays(providers, cfg.CacheTTL)),
	)
}
