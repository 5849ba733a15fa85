package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"konditer/internal/domain/events"
	"konditer/internal/domain/lowstock"
)

// Enqueuer schedules a low-stock check.
type Enqueuer interface {
	EnqueueLowStockCheck(ctx context.Context, p events.LowStockCheckRequested) error
}

// Client submits tasks to the queue.
type Client struct {
	client *asynq.Client
}

var _ Enqueuer = (*Client)(nil)

// NewClient constructs an asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueLowStockCheck enqueues a low-stock check. A duplicate of a task that
// is still queued is not an error.
func (c *Client) EnqueueLowStockCheck(ctx context.Context, p events.LowStockCheckRequested) error {
	task, err := NewLowStockCheckTask(p)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue %s: %w", TaskLowStockCheck, err)
	}
	return nil
}

// EnqueueReconcile enqueues a reconciliation to run now.
func (c *Client) EnqueueReconcile(ctx context.Context, p ReconcilePayload) (*asynq.TaskInfo, error) {
	task, err := NewReconcileTask(p.ScheduledFor)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Inline runs low-stock checks in the calling goroutine. It serves
// deployments without Redis.
type Inline struct {
	Checker *lowstock.Checker
}

func (i Inline) EnqueueLowStockCheck(ctx context.Context, p events.LowStockCheckRequested) error {
	_, err := i.Checker.Check(ctx, p.WarehouseID)
	return err
}
