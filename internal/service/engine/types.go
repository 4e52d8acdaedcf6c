package engine

import (
	"context"
	"errors"
)

var (
	ErrAlreadyStarted = errors.New("engine already started")
	ErrDrainTimeout   = errors.New("engine stop timed out")
)

// Engine 独立运行的引擎, 每个引擎一个 goroutine
type Engine interface {
	Name() string
	Start() error
	// Stop 可重复调用, 超过排空时间后直接返回
	Stop() error
	// Run 启动引擎并阻塞到 ctx 结束, 然后停止
	Run(ctx context.Context) error
}

// Publisher 引擎向总线发布事件的最小接口
type Publisher interface {
	Publish(e Event) error
}

// TradingStater 交易状态的只读视图, 由 ClockEngine 提供
type TradingStater interface {
	TradingState() bool
}
