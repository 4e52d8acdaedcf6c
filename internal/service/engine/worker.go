package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrStopped = errors.New("engine stopped")

const defaultStopTimeout = 5 * time.Second

// worker 管理单个循环 goroutine 的启动/停止
type worker struct {
	stopTimeout time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func newWorker(stopTimeout time.Duration) *worker {
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	return &worker{
		stopTimeout: stopTimeout,
		done:        make(chan struct{}),
	}
}

func (w *worker) start(loop func(ctx context.Context)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrStopped
	}
	if w.started {
		return ErrAlreadyStarted
	}
	w.started = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go func() {
		defer close(w.done)
		loop(ctx)
	}()
	return nil
}

// stop 取消循环并等待其退出, 超时后调用 onTimeout 并返回 ErrDrainTimeout
func (w *worker) stop(onTimeout func()) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	timer := time.NewTimer(w.stopTimeout)
	defer timer.Stop()
	select {
	case <-w.done:
		return nil
	case <-timer.C:
		if onTimeout != nil {
			onTimeout()
		}
		return ErrDrainTimeout
	}
}

// doneChan 循环结束后关闭; 未启动时永不关闭
func (w *worker) doneChan() <-chan struct{} {
	return w.done
}

// run 启动后阻塞到 ctx 结束或循环自然退出
func run(ctx context.Context, e Engine, done <-chan struct{}) error {
	if err := e.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-done:
	}
	return e.Stop()
}

// sleep 可被 ctx 打断的等待, 被打断时返回 false
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
