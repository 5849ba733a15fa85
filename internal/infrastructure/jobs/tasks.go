// Package jobs runs background work on asynq: low-stock checks requested by
// confirmed documents and the nightly balance reconciliation.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"konditer/internal/core/id"
	"konditer/internal/domain/events"
)

const (
	// QueueDefault is the queue every konditer task goes to.
	QueueDefault = "default"

	// TaskLowStockCheck compares balances of a warehouse with item minimums.
	TaskLowStockCheck = "lowstock:check"
	// TaskReconcile rebuilds balance quantities from the movement ledger.
	TaskReconcile = "ledger:reconcile"
)

// ReconcilePayload carries scheduling metadata.
type ReconcilePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockCheckTask builds a low-stock check task. Checks requested by the
// same document collapse into one task while it is queued.
func NewLowStockCheckTask(p events.LowStockCheckRequested) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(5)}
	if !id.IsNil(p.DocumentID) {
		opts = append(opts, asynq.TaskID(lowStockTaskID(p)))
	}
	return asynq.NewTask(TaskLowStockCheck, body, opts...), nil
}

func lowStockTaskID(p events.LowStockCheckRequested) string {
	wh := "all"
	if p.WarehouseID != nil {
		wh = p.WarehouseID.String()
	}
	return TaskLowStockCheck + ":" + p.DocumentID.String() + ":" + wh + ":" + p.RequestedAt.UTC().Format(time.RFC3339Nano)
}

// NewReconcileTask builds a reconciliation task.
func NewReconcileTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReconcilePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
