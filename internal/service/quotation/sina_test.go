package quotation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const sinaYili = "sh600887=伊利股份,28.000,27.950,28.100,28.300,27.800,28.090,28.100,12345600,346789000.000," +
	"100,28.090,200,28.080,300,28.070,400,28.060,500,28.050," +
	"600,28.100,700,28.110,800,28.120,900,28.130,1000,28.140,2024-03-04,15:00:03,00"

const sinaPingan = "sz000001=平安银行,10.010,10.000,10.200,10.300,9.900,10.190,10.200,5000000,51000000.000," +
	"1,10.190,2,10.180,3,10.170,4,10.160,5,10.150," +
	"6,10.200,7,10.210,8,10.220,9,10.230,10,10.240,2024-03-04,15:00:03,00"

func TestParseSina(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)

	testCases := []struct {
		name    string
		body    string
		wantLen int
		wantErr bool
	}{
		{name: "single", body: sinaYili, wantLen: 1},
		{name: "multiple lines", body: sinaYili + "\n" + sinaPingan + "\n", wantLen: 2},
		{name: "suspended line skipped", body: sinaYili + "\nsh600000=\n", wantLen: 1},
		{name: "short line skipped", body: "sz000002=万科A,1,2,3\n", wantLen: 0},
		{name: "garbage number", body: strings.Replace(sinaYili, "28.300", "abc", 1), wantErr: true},
		{name: "bad date", body: strings.Replace(sinaYili, "2024-03-04", "yesterday", 1), wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := parseSina(tc.body, loc)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadResponse)
				return
			}
			require.NoError(t, err)
			assert.Len(t, snap, tc.wantLen)
		})
	}
}

func TestParseSina_Fields(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	snap, err := parseSina(sinaYili, loc)
	require.NoError(t, err)

	q, ok := snap["600887"]
	require.True(t, ok)
	assert.Equal(t, "600887", q.Code)
	assert.Equal(t, "伊利股份", q.Name)
	assert.True(t, decimal.RequireFromString("28").Equal(q.Open))
	assert.True(t, decimal.RequireFromString("27.95").Equal(q.Close))
	assert.True(t, decimal.RequireFromString("28.1").Equal(q.Now))
	assert.True(t, decimal.RequireFromString("28.3").Equal(q.High))
	assert.True(t, decimal.RequireFromString("27.8").Equal(q.Low))
	assert.Equal(t, int64(12345600), q.Turnover)
	require.Len(t, q.Bids, 5)
	require.Len(t, q.Asks, 5)
	assert.Equal(t, int64(100), q.Bids[0].Volume)
	assert.True(t, decimal.RequireFromString("28.09").Equal(q.Bids[0].Price))
	assert.Equal(t, int64(1000), q.Asks[4].Volume)
	assert.True(t, decimal.RequireFromString("28.14").Equal(q.Asks[4].Price))
	assert.True(t, time.Date(2024, 3, 4, 15, 0, 3, 0, loc).Equal(q.Time))
}

func TestSina_Fetch(t *testing.T) {
	var gotList, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotList = r.URL.Query().Get("list")
		gotReferer = r.Header.Get("Referer")
		body, _ := simplifiedchinese.GBK.NewEncoder().String(sinaYili + "\n" + sinaPingan + "\n")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	s := NewSina(resty.New(), time.UTC)
	s.url = srv.URL

	snap, err := s.Fetch(context.Background(), []string{"600887", "000001", "600887"})
	require.NoError(t, err)
	assert.Equal(t, "sh600887,sz000001", gotList)
	assert.Equal(t, sinaReferer, gotReferer)
	assert.Equal(t, []string{"000001", "600887"}, snap.Codes())
	assert.Equal(t, "平安银行", snap["000001"].Name)
}

func TestSina_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSina(resty.New(), time.UTC)
	s.url = srv.URL

	_, err := s.Fetch(context.Background(), []string{"600887"})
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "sina", fe.Source)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestSina_FetchEmpty(t *testing.T) {
	s := NewSina(resty.New(), nil)
	snap, err := s.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, snap)
}
