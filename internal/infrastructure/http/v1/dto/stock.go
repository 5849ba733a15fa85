package dto

import "konditer/internal/domain/reconcile"

// StockQuery selects balances or movements.
type StockQuery struct {
	WarehouseID string `form:"warehouseId" binding:"omitempty,uuid"`
	ItemID      string `form:"itemId" binding:"omitempty,uuid"`
}

// RecomputeResponse reports a balance recomputation.
type RecomputeResponse struct {
	reconcile.Summary
	DurationMs int64 `json:"durationMs"`
}

// LowStockResponse reports a manual low-stock check.
type LowStockResponse struct {
	Alerts int `json:"alerts"`
}
