package worker

import (
	"context"

	"github.com/gotomicro/ego/core/elog"
	"golang.org/x/sync/errgroup"

	"github.com/vervana-io/fastfast-common/internal/errs"
)

// Worker 一个常驻的消费循环
type Worker interface {
	Handle(ctx context.Context) error
}

// QueueWorker 并发启动配置好的 worker，任何一个退出就整体退出
type QueueWorker struct {
	workers []Worker
	logger  *elog.Component
}

func NewQueueWorker(workers ...Worker) *QueueWorker {
	return &QueueWorker{
		workers: workers,
		logger:  elog.DefaultLogger,
	}
}

func (q *QueueWorker) Start(ctx context.Context) error {
	if len(q.workers) == 0 {
		return errs.ErrNoWorkers
	}
	q.logger.Info("启动消费", elog.Int("workers", len(q.workers)))
	eg, ctx := errgroup.WithContext(ctx)
	for _, w := range q.workers {
		worker := w
		eg.Go(func() error {
			return worker.Handle(ctx)
		})
	}
	return eg.Wait()
}
