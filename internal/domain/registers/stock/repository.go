// Package stock is the balance store: current quantity and moving-average unit
// cost per (warehouse, item).
package stock

import (
	"context"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
)

// Repository persists balances. Every method runs in the caller's transaction.
type Repository interface {
	// Get returns the balance without locking; found is false when no row exists.
	Get(ctx context.Context, warehouseID, itemID id.ID) (b entity.Balance, found bool, err error)

	// GetForUpdate returns the balance row locked for the rest of the transaction,
	// creating a zero row first if none exists.
	GetForUpdate(ctx context.Context, warehouseID, itemID id.ID) (entity.Balance, error)

	// Save writes quantity, unit cost and timestamps of b.
	Save(ctx context.Context, b entity.Balance) error

	// ListByWarehouse returns all balances of a warehouse ordered by item.
	ListByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.Balance, error)

	// ListAll returns every balance row.
	ListAll(ctx context.Context) ([]entity.Balance, error)

	// LockAll takes an exclusive lock on the whole balance table until the
	// transaction ends. Writers block; readers continue.
	LockAll(ctx context.Context) error
}
