package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

// StaticHolidays 配置文件中的节假日列表
type StaticHolidays map[string]struct{}

func NewStaticHolidays(loc *time.Location, dates ...string) (StaticHolidays, error) {
	h := make(StaticHolidays, len(dates))
	for _, s := range dates {
		d, err := ParseDate(s, loc)
		if err != nil {
			return nil, err
		}
		h[DateKey(d)] = struct{}{}
	}
	return h, nil
}

func (h StaticHolidays) IsHoliday(_ context.Context, date time.Time) (bool, error) {
	_, ok := h[DateKey(date)]
	return ok, nil
}

// HolidayStore 持久化的节假日, 由 repo 实现
type HolidayStore interface {
	Exists(ctx context.Context, date string) (bool, error)
}

// StoredHolidays 从数据库读取节假日
type StoredHolidays struct {
	store HolidayStore
}

func NewStoredHolidays(store HolidayStore) *StoredHolidays {
	return &StoredHolidays{store: store}
}

func (h *StoredHolidays) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	return h.store.Exists(ctx, DateKey(date))
}

const defaultHolidayAPI = "http://www.easybots.cn/api/holiday.php"

// RemoteHolidays 节假日查询接口, 返回 {"20240101": "2"}
// 0 工作日, 1 休息日, 2 节假日
type RemoteHolidays struct {
	cli *resty.Client
	api string
}

func NewRemoteHolidays(cli *resty.Client, api string) *RemoteHolidays {
	if api == "" {
		api = defaultHolidayAPI
	}
	return &RemoteHolidays{cli: cli, api: api}
}

func (h *RemoteHolidays) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	key := DateKey(date)
	resp, err := h.cli.R().
		SetContext(ctx).
		SetQueryParam("d", key).
		Get(h.api)
	if err != nil {
		return false, fmt.Errorf("query holiday api: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("query holiday api: bad status %d", resp.StatusCode())
	}

	var res map[string]string
	if err = json.Unmarshal(resp.Body(), &res); err != nil {
		return false, fmt.Errorf("decode holiday api response: %w", err)
	}
	flag, ok := res[key]
	if !ok {
		return false, fmt.Errorf("holiday api: no answer for %s", key)
	}
	return flag == "1" || flag == "2", nil
}

// AnyHolidays 任意一个来源认为是节假日即为节假日
type AnyHolidays []HolidayProvider

func (hs AnyHolidays) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	for _, h := range hs {
		ok, err := h.IsHoliday(ctx, date)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// CachedHolidays 缓存查询结果, 失败不缓存
type CachedHolidays struct {
	next  HolidayProvider
	cache *gocache.Cache
}

func NewCachedHolidays(next HolidayProvider, ttl time.Duration) *CachedHolidays {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &CachedHolidays{
		next:  next,
		cache: gocache.New(ttl, ttl*2),
	}
}

func (h *CachedHolidays) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	key := DateKey(date)
	if v, ok := h.cache.Get(key); ok {
		return v.(bool), nil
	}
	holiday, err := h.next.IsHoliday(ctx, date)
	if err != nil {
		return false, err
	}
	h.cache.SetDefault(key, holiday)
	return holiday, nil
}

// Keys 排序后的日期键, 便于展示
func (h StaticHolidays) Keys() []string {
	keys := lo.Keys(h)
	slices.Sort(keys)
	return keys
}
