package schedule

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Task 长期运行的任务, Run 阻塞到 ctx 取消或任务自行结束
type Task interface {
	Run(ctx context.Context) error
	Name() string
}

// Group 按添加顺序启动任务, 任一任务退出或 ctx 取消后按相反顺序逐个停止
type Group struct {
	log   zerolog.Logger
	tasks []Task
}

func NewGroup(l zerolog.Logger) *Group {
	return &Group{log: l.With().Str("component", "schedule").Logger()}
}

func (g *Group) Add(tasks ...Task) *Group {
	g.tasks = append(g.tasks, tasks...)
	return g
}

func (g *Group) Run(ctx context.Context) error {
	if len(g.tasks) == 0 {
		return nil
	}
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	var eg errgroup.Group
	cancels := make([]context.CancelFunc, len(g.tasks))
	dones := make([]chan struct{}, len(g.tasks))
	for i, t := range g.tasks {
		t := t
		// 任务的 ctx 不继承父 ctx, 停止顺序由下面统一控制
		tctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		cancels[i] = cancel
		dones[i] = make(chan struct{})
		done := dones[i]

		g.log.Info().Str("task", t.Name()).Msg("task starting")
		eg.Go(func() error {
			defer close(done)
			defer shutdown()
			if err := t.Run(tctx); err != nil {
				g.log.Error().Err(err).Str("task", t.Name()).Msg("task failed")
				return fmt.Errorf("%s: %w", t.Name(), err)
			}
			g.log.Info().Str("task", t.Name()).Msg("task exited")
			return nil
		})
	}

	<-ctx.Done()
	for i := len(g.tasks) - 1; i >= 0; i-- {
		cancels[i]()
		<-dones[i]
	}
	return eg.Wait()
}
