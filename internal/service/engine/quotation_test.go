package engine

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/darknessitachi/pquant/internal/service/quotation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchResult struct {
	snapshot quotation.Snapshot
	err      error
}

// scriptedSource 按顺序返回预设结果, 用完后重复最后一个
type scriptedSource struct {
	mu      sync.Mutex
	results []fetchResult
	calls   [][]string
}

func (s *scriptedSource) Name() string {
	return "scripted"
}

func (s *scriptedSource) Fetch(ctx context.Context, codes []string) (quotation.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, codes)
	if len(s.results) == 0 {
		return quotation.Snapshot{}, nil
	}
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r.snapshot, r.err
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func snapshotOf(code string, price string) quotation.Snapshot {
	return quotation.Snapshot{code: {Code: code, Now: decimal.RequireFromString(price)}}
}

// countingWait 记录等待次数, 第 limit 次等待时返回 false 结束循环
func countingWait(limit int) (func(ctx context.Context, d time.Duration) bool, *[]time.Duration) {
	var waits []time.Duration
	return func(ctx context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return len(waits) < limit
	}, &waits
}

func TestQuotationEngine_Subscribe(t *testing.T) {
	e := NewQuotationEngine(&recordingPublisher{}, &scriptedSource{})

	e.Subscribe("600887", "600887")
	e.Subscribe("000001", "600887", "")
	assert.Equal(t, []string{"600887", "000001"}, e.Watching())

	e.Unsubscribe("600887", "300750")
	assert.Equal(t, []string{"000001"}, e.Watching())

	e.Unsubscribe("000001")
	assert.Empty(t, e.Watching())

	watching := e.Watching()
	e.Subscribe("600519")
	assert.Empty(t, watching)
}

func TestQuotationEngine_EmptyWatchList(t *testing.T) {
	var buf bytes.Buffer
	src := &scriptedSource{}
	pub := &recordingPublisher{}
	e := NewQuotationEngine(pub, src, WithQuotationLogger(zerolog.New(&buf)))

	e.Subscribe("600887")
	e.Unsubscribe("600887")

	require.NoError(t, e.poll(context.Background()))
	assert.Zero(t, src.Calls())
	assert.Empty(t, pub.Events())
	assert.Contains(t, buf.String(), "no subscribed codes")
}

func TestQuotationEngine_RetryAfterFailure(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{
		{err: &quotation.FetchError{Source: "scripted", Err: errors.New("timeout")}},
		{snapshot: snapshotOf("600887", "28.1")},
	}}
	pub := &recordingPublisher{}
	e := NewQuotationEngine(pub, src, WithCodes("600887"), WithPushInterval(time.Minute))
	wait, waits := countingWait(2)
	e.wait = wait

	e.loop(context.Background())

	assert.Equal(t, 2, src.Calls())
	assert.Equal(t, []time.Duration{time.Minute, time.Minute}, *waits)
	events := pub.Events()
	require.Len(t, events, 1)
	p, ok := events[0].Data.(QuotationPayload)
	require.True(t, ok)
	assert.Equal(t, "scripted", p.Source)
	assert.Equal(t, []string{"600887"}, p.Snapshot.Codes())
}

func TestQuotationEngine_Poll(t *testing.T) {
	testCases := []struct {
		name        string
		gate        TradingStater
		result      fetchResult
		pubErr      error
		wantCalls   int
		wantEvents  int
		wantErr     bool
		wantLogPart string
	}{
		{name: "published", result: fetchResult{snapshot: snapshotOf("600887", "1")}, wantCalls: 1, wantEvents: 1},
		{name: "fetch failed", result: fetchResult{err: errors.New("boom")}, wantCalls: 1, wantErr: true, wantLogPart: "failed to fetch quotation"},
		{name: "market closed", gate: staticStater(false), wantCalls: 0},
		{name: "market open", gate: staticStater(true), result: fetchResult{snapshot: snapshotOf("600887", "1")}, wantCalls: 1, wantEvents: 1},
		{name: "bus full", result: fetchResult{snapshot: snapshotOf("600887", "1")}, pubErr: ErrQueueFull, wantCalls: 1, wantLogPart: "failed to publish quotation event"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			src := &scriptedSource{results: []fetchResult{tc.result}}
			pub := &recordingPublisher{err: tc.pubErr}
			opts := []QuotationOption{WithCodes("600887"), WithQuotationLogger(zerolog.New(&buf))}
			if tc.gate != nil {
				opts = append(opts, WithTradingGate(tc.gate))
			}
			e := NewQuotationEngine(pub, src, opts...)

			err := e.poll(context.Background())
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantCalls, src.Calls())
			assert.Len(t, pub.Events(), tc.wantEvents)
			if tc.wantLogPart != "" {
				assert.Contains(t, buf.String(), tc.wantLogPart)
			}
		})
	}
}

func TestQuotationEngine_Lifecycle(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{{snapshot: snapshotOf("600887", "28.1")}}}
	pub := &recordingPublisher{}
	e := NewQuotationEngine(pub, src, WithCodes("600887"), WithPushInterval(5*time.Millisecond))

	require.NoError(t, e.Start())
	assert.ErrorIs(t, e.Start(), ErrAlreadyStarted)
	require.Eventually(t, func() bool {
		return len(pub.Events()) >= 3
	}, time.Second, 5*time.Millisecond)

	// 长间隔下停止也能立即返回
	slow := NewQuotationEngine(pub, src, WithCodes("600887"), WithPushInterval(time.Hour))
	require.NoError(t, slow.Start())

	start := time.Now()
	require.NoError(t, slow.Stop())
	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
	assert.Less(t, time.Since(start), time.Second)
}
