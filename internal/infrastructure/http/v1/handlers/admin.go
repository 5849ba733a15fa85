package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"konditer/internal/core/apperror"
	"konditer/internal/core/id"
	"konditer/internal/domain/lowstock"
	"konditer/internal/domain/reconcile"
	"konditer/internal/infrastructure/http/v1/dto"
	"konditer/pkg/logger"
)

// ReconcileObserver receives the outcome of each recompute.
type ReconcileObserver interface {
	ObserveReconcile(summary reconcile.Summary, err error)
}

// AdminHandler runs maintenance operations.
type AdminHandler struct {
	*BaseHandler
	reconcile *reconcile.Service
	lowStock  *lowstock.Checker
	observer  ReconcileObserver
}

// NewAdminHandler creates an admin handler. observer may be nil.
func NewAdminHandler(base *BaseHandler, rec *reconcile.Service, low *lowstock.Checker, observer ReconcileObserver) *AdminHandler {
	return &AdminHandler{BaseHandler: base, reconcile: rec, lowStock: low, observer: observer}
}

// RecomputeBalances handles POST /admin/recompute-balances
func (h *AdminHandler) RecomputeBalances(c *gin.Context) {
	ctx := c.Request.Context()
	started := time.Now()

	summary, err := h.reconcile.RecomputeBalances(ctx)
	if h.observer != nil {
		h.observer.ObserveReconcile(summary, err)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	elapsed := time.Since(started)
	logger.FromContext(ctx).Infow("balances recomputed",
		"updated", summary.Updated,
		"created", summary.Created,
		"orphaned", summary.Orphaned,
		"duration", elapsed,
	)
	h.OK(c, dto.RecomputeResponse{Summary: summary, DurationMs: elapsed.Milliseconds()})
}

// CheckLowStock handles POST /admin/low-stock/check?warehouseId=
func (h *AdminHandler) CheckLowStock(c *gin.Context) {
	var warehouseID *id.ID
	if raw := c.Query("warehouseId"); raw != "" {
		v, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid id format").WithDetail("param", "warehouseId"))
			return
		}
		warehouseID = &v
	}
	n, err := h.lowStock.Check(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.LowStockResponse{Alerts: n})
}
