// Package tx defines the transaction contract the domain layer depends on.
// Implementations live in infrastructure/storage (postgres and memory).
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
//
// If fn returns an error the transaction is rolled back and no change made
// inside fn is observable afterwards. Nested calls reuse the outer transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SerializableManager can run a unit of work at SERIALIZABLE isolation.
// Batch jobs that overwrite balances use it.
type SerializableManager interface {
	Manager

	RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}
