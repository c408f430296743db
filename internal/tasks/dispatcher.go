package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer 是 asynq.Client 的最小子集，便于测试替换。
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher 把投递事件写入 asynq 队列。
type Dispatcher struct {
	client Enqueuer
}

// NewDispatcher 构造 Dispatcher。
func NewDispatcher(client Enqueuer) *Dispatcher {
	return &Dispatcher{client: client}
}

// Notify 入队一次投递事件。
func (d *Dispatcher) Notify(ctx context.Context, event string, applicationID uint) error {
	task, err := NewApplicationEventTask(event, applicationID, CorrelationID(ctx))
	if err != nil {
		return fmt.Errorf("build task: %w", err)
	}
	if _, err := d.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	); err != nil {
		return fmt.Errorf("enqueue %s: %w", event, err)
	}
	return nil
}
