package app

import (
	"konditer/internal/core/clock"
	"konditer/internal/infrastructure/storage/memory"
)

// MemoryBackend holds an in-process backend and its outbox for inspection.
type MemoryBackend struct {
	Backend
	Store   *memory.Store
	Outbox  *memory.Outbox
	Deduper *memory.Deduper
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(clk clock.Clock) *MemoryBackend {
	store := memory.NewStore()
	outbox := memory.NewOutbox(store)
	auditLog := memory.NewAuditLog(store)
	return &MemoryBackend{
		Backend: Backend{
			TxManager:   store,
			Numerator:   memory.NewNumerator(store),
			Publisher:   outbox,
			Auditor:     auditLog,
			History:     auditLog,
			Balances:    memory.NewBalanceRepo(store),
			Ledger:      memory.NewLedgerRepo(store),
			Items:       memory.NewItemRepo(store),
			Warehouses:  memory.NewWarehouseRepo(store),
			Recipes:     memory.NewRecipeRepo(store),
			Purchases:   memory.NewPurchaseRepo(store),
			Transfers:   memory.NewTransferRepo(store),
			Adjustments: memory.NewAdjustmentRepo(store),
			Sales:       memory.NewSaleRepo(store),
			Production:  memory.NewProductionRepo(store),
		},
		Store:   store,
		Outbox:  outbox,
		Deduper: memory.NewDeduper(clk),
	}
}
