package app

import (
	"fmt"

	"konditer/internal/core/clock"
	"konditer/internal/infrastructure/numerator"
	"konditer/internal/infrastructure/storage/postgres"
	"konditer/internal/infrastructure/storage/postgres/catalog_repo"
	"konditer/internal/infrastructure/storage/postgres/document_repo"
	"konditer/internal/infrastructure/storage/postgres/register_repo"
)

// PostgresBackend is the production backend.
type PostgresBackend struct {
	Backend
	TxManager   *postgres.TxManager
	Idempotency *postgres.IdempotencyStore
}

// NewPostgresBackend wires every repository onto pool.
func NewPostgresBackend(pool *postgres.Pool, clk clock.Clock) (*PostgresBackend, error) {
	txm := postgres.NewTxManager(pool)

	auditSvc, err := postgres.NewAuditService(txm)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}

	return &PostgresBackend{
		Backend: Backend{
			TxManager:   txm,
			Numerator:   numerator.New(txm),
			Publisher:   postgres.NewOutboxPublisher(txm, clk),
			Auditor:     auditSvc,
			History:     auditSvc,
			Balances:    register_repo.NewBalanceRepo(txm),
			Ledger:      register_repo.NewLedgerRepo(txm),
			Items:       catalog_repo.NewItemRepo(txm),
			Warehouses:  catalog_repo.NewWarehouseRepo(txm),
			Recipes:     catalog_repo.NewRecipeRepo(txm),
			Purchases:   document_repo.NewPurchaseRepo(txm),
			Transfers:   document_repo.NewTransferRepo(txm),
			Adjustments: document_repo.NewAdjustmentRepo(txm),
			Sales:       document_repo.NewSaleRepo(txm),
			Production:  document_repo.NewProductionRepo(txm),
		},
		TxManager:   txm,
		Idempotency: postgres.NewIdempotencyStore(txm, clk, 0),
	}, nil
}
