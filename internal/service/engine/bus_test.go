package engine

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FIFO(t *testing.T) {
	const n = 2000
	bus := NewBus(n)

	var got []int
	bus.Subscribe("test", func(ctx context.Context, e Event) error {
		got = append(got, e.Data.(testPayload).N)
		return nil
	})

	require.NoError(t, bus.Start())
	for i := 0; i < n; i++ {
		require.NoError(t, bus.PublishPayload(testPayload{N: i}))
	}
	require.NoError(t, bus.Stop())

	require.Len(t, got, n)
	for i, v := range got {
		if v != i {
			t.Fatalf("event %d delivered at position %d", v, i)
		}
	}
}

func TestBus_DispatchOrder(t *testing.T) {
	bus := NewBus(16)

	var calls []string
	record := func(name string) Handler {
		return func(ctx context.Context, e Event) error {
			calls = append(calls, name+":"+e.Type.ToString())
			return nil
		}
	}
	// 通配订阅先注册, 仍然排在精确订阅之后
	bus.SubscribeAll(record("any"))
	bus.Subscribe("test", record("first"))
	bus.Subscribe(TypeAny, record("any2"))
	bus.Subscribe("test", record("second"))
	bus.Subscribe("other", record("other"))

	require.NoError(t, bus.PublishPayload(testPayload{N: 1}))
	require.NoError(t, bus.PublishPayload(otherPayload{}))
	require.NoError(t, bus.Start())
	require.NoError(t, bus.Stop())

	assert.Equal(t, []string{
		"first:test", "second:test", "any:test", "any2:test",
		"other:other", "any:other", "any2:other",
	}, calls)
}

func TestBus_HandlerFailureIsolation(t *testing.T) {
	testCases := []struct {
		name string
		fail func()
	}{
		{name: "panic", fail: func() { panic("boom") }},
		{name: "error", fail: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			bus := NewBus(16, WithBusLogger(zerolog.New(&buf)))

			var faulty, healthy []int
			bus.Subscribe("test", func(ctx context.Context, e Event) error {
				n := e.Data.(testPayload).N
				faulty = append(faulty, n)
				if n == 1 {
					if tc.fail != nil {
						tc.fail()
					}
					return errors.New("handler failed")
				}
				return nil
			})
			bus.Subscribe("test", func(ctx context.Context, e Event) error {
				healthy = append(healthy, e.Data.(testPayload).N)
				return nil
			})

			for i := 0; i < 3; i++ {
				require.NoError(t, bus.PublishPayload(testPayload{N: i}))
			}
			require.NoError(t, bus.Start())
			require.NoError(t, bus.Stop())

			assert.Equal(t, []int{0, 1, 2}, faulty)
			assert.Equal(t, []int{0, 1, 2}, healthy)
			assert.Contains(t, buf.String(), "event handler")
		})
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(16)

	var exact, all int
	id := bus.Subscribe("test", func(ctx context.Context, e Event) error {
		exact++
		return nil
	})
	anyID := bus.SubscribeAll(func(ctx context.Context, e Event) error {
		all++
		return nil
	})

	assert.True(t, bus.Unsubscribe(id))
	assert.False(t, bus.Unsubscribe(id))
	assert.True(t, bus.Unsubscribe(anyID))
	assert.False(t, bus.Unsubscribe("missing"))

	require.NoError(t, bus.PublishPayload(testPayload{}))
	require.NoError(t, bus.Start())
	require.NoError(t, bus.Stop())

	assert.Zero(t, exact)
	assert.Zero(t, all)
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus(2)

	require.NoError(t, bus.PublishPayload(testPayload{N: 1}))
	require.NoError(t, bus.Publish(Event{Data: testPayload{N: 2}}))
	assert.ErrorIs(t, bus.PublishPayload(testPayload{N: 3}), ErrQueueFull)
	assert.Equal(t, 2, bus.Pending())

	assert.ErrorIs(t, bus.Publish(Event{}), ErrInvalidEvent)
	assert.ErrorIs(t, bus.Publish(Event{Type: TypeAny, Data: testPayload{}}), ErrInvalidEvent)

	var got []Event
	bus.Subscribe("test", func(ctx context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, bus.Start())
	require.NoError(t, bus.Stop())

	require.Len(t, got, 2)
	for _, e := range got {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		assert.Equal(t, Type("test"), e.Type)
	}
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestBus_Lifecycle(t *testing.T) {
	bus := NewBus(4)

	// 未启动时停止也是安全的
	require.NoError(t, NewBus(1).Stop())

	require.NoError(t, bus.Start())
	assert.ErrorIs(t, bus.Start(), ErrAlreadyStarted)
	require.NoError(t, bus.Stop())
	require.NoError(t, bus.Stop())
	assert.ErrorIs(t, bus.Start(), ErrStopped)
	assert.ErrorIs(t, bus.PublishPayload(testPayload{}), ErrBusClosed)
}

func TestBus_DrainTimeout(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(8,
		WithBusLogger(zerolog.New(&buf)),
		WithDrainTimeout(50*time.Millisecond),
	)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	bus.Subscribe("test", func(ctx context.Context, e Event) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.PublishPayload(testPayload{N: i}))
	}
	require.NoError(t, bus.Start())
	<-entered

	assert.ErrorIs(t, bus.Stop(), ErrDrainTimeout)
	assert.Contains(t, buf.String(), "abandoning queued events")
	close(release)
}

func TestBus_Run(t *testing.T) {
	bus := NewBus(8)
	delivered := make(chan struct{})
	var once sync.Once
	bus.Subscribe("test", func(ctx context.Context, e Event) error {
		once.Do(func() { close(delivered) })
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- bus.Run(ctx) }()

	require.Eventually(t, func() bool {
		return bus.PublishPayload(testPayload{}) == nil
	}, time.Second, 10*time.Millisecond)
	<-delivered
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bus did not stop")
	}
}
