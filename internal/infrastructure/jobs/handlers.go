package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	appctx "konditer/internal/core/context"
	"konditer/internal/domain/events"
	"konditer/internal/domain/lowstock"
	"konditer/internal/domain/reconcile"
	"konditer/pkg/logger"
)

// Handlers executes konditer tasks against the domain services.
type Handlers struct {
	LowStock  *lowstock.Checker
	Reconcile *reconcile.Service
	Metrics   ReconcileObserver
}

// ReconcileObserver is told about every finished reconciliation.
type ReconcileObserver interface {
	ObserveReconcile(summary reconcile.Summary, err error)
}

// HandleLowStockCheck processes TaskLowStockCheck tasks.
func (h *Handlers) HandleLowStockCheck(ctx context.Context, t *asynq.Task) error {
	var p events.LowStockCheckRequested
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	ctx = appctx.WithSystemUser(ctx)

	sent, err := h.LowStock.Check(ctx, p.WarehouseID)
	if err != nil {
		return err
	}
	if sent > 0 {
		logger.Info(ctx, "low-stock alerts sent",
			"alerts", sent,
			"document_type", p.DocumentType,
			"document_number", p.DocumentNumber)
	}
	return nil
}

// HandleReconcile processes TaskReconcile tasks.
func (h *Handlers) HandleReconcile(ctx context.Context, t *asynq.Task) error {
	var p ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	ctx = appctx.WithSystemUser(ctx)

	summary, err := h.Reconcile.RecomputeBalances(ctx)
	if h.Metrics != nil {
		h.Metrics.ObserveReconcile(summary, err)
	}
	return err
}

// TaskHandlers lists the handlers in registration form.
func (h *Handlers) TaskHandlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskLowStockCheck, Handler: h.HandleLowStockCheck},
		{Type: TaskReconcile, Handler: h.HandleReconcile},
	}
}
