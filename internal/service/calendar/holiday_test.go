package calendar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStaticHolidays(t *testing.T) {
	_, err := NewStaticHolidays(cst, "2024-13-01")
	assert.Error(t, err)

	h, err := NewStaticHolidays(cst, "20241002", "2024-10-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"20241001", "20241002"}, h.Keys())

	ok, err := h.IsHoliday(context.Background(), at(2024, 10, 1, 0, 0, 0))
	require.NoError(t, err)
	assert.True(t, ok)
}

type mockHolidayStore struct {
	mock.Mock
}

func (m *mockHolidayStore) Exists(ctx context.Context, date string) (bool, error) {
	args := m.Called(ctx, date)
	return args.Bool(0), args.Error(1)
}

func TestStoredHolidays(t *testing.T) {
	ctx := context.Background()
	store := new(mockHolidayStore)
	store.On("Exists", ctx, "20241001").Return(true, nil)
	store.On("Exists", ctx, "20241008").Return(false, nil)

	h := NewStoredHolidays(store)
	ok, err := h.IsHoliday(ctx, at(2024, 10, 1, 0, 0, 0))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.IsHoliday(ctx, at(2024, 10, 8, 0, 0, 0))
	require.NoError(t, err)
	assert.False(t, ok)
	store.AssertExpectations(t)
}

func TestRemoteHolidays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := r.URL.Query().Get("d")
		switch d {
		case "20241001":
			_, _ = w.Write([]byte(`{"20241001":"2"}`))
		case "20241005":
			_, _ = w.Write([]byte(`{"20241005":"1"}`))
		case "20241008":
			_, _ = w.Write([]byte(`{"20241008":"0"}`))
		case "20241009":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	h := NewRemoteHolidays(resty.New(), srv.URL)
	testCases := []struct {
		name    string
		date    time.Time
		want    bool
		wantErr bool
	}{
		{name: "holiday", date: at(2024, 10, 1, 0, 0, 0), want: true},
		{name: "rest day", date: at(2024, 10, 5, 0, 0, 0), want: true},
		{name: "workday", date: at(2024, 10, 8, 0, 0, 0), want: false},
		{name: "missing answer", date: at(2024, 10, 9, 0, 0, 0), wantErr: true},
		{name: "server error", date: at(2024, 10, 10, 0, 0, 0), wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.IsHoliday(context.Background(), tc.date)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type countingProvider struct {
	calls int
	err   error
	ok    bool
}

func (p *countingProvider) IsHoliday(context.Context, time.Time) (bool, error) {
	p.calls++
	return p.ok, p.err
}

func TestCachedHolidays(t *testing.T) {
	ctx := context.Background()
	next := &countingProvider{ok: true}
	h := NewCachedHolidays(next, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := h.IsHoliday(ctx, at(2024, 10, 1, 10, 0, 0))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, next.calls)

	// 失败不缓存
	next.err = errors.New("down")
	_, err := h.IsHoliday(ctx, at(2024, 10, 2, 0, 0, 0))
	assert.Error(t, err)
	next.err = nil
	_, err = h.IsHoliday(ctx, at(2024, 10, 2, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestAnyHolidays(t *testing.T) {
	ctx := context.Background()
	day := at(2024, 10, 1, 0, 0, 0)

	ok, err := AnyHolidays{&countingProvider{}, &countingProvider{ok: true}}.IsHoliday(ctx, day)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AnyHolidays{&countingProvider{}}.IsHoliday(ctx, day)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = AnyHolidays{&countingProvider{err: errors.New("down")}, &countingProvider{ok: true}}.IsHoliday(ctx, day)
	assert.Error(t, err)
}
