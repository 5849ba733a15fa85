// Package memory is an in-process implementation of every repository. It
// backs tests and the server's no-database mode. Transactions are serialized
// and roll back by restoring table snapshots.
package memory

import (
	"context"
	"sync"

	"konditer/internal/core/tx"
)

// table is a unit of state that can be snapshotted for rollback.
type table interface {
	snapshot() (restore func())
}

// Store owns all tables and the transaction lock.
type Store struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	tables []table
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) register(t table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append(s.tables, t)
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// RunInTransaction implements tx.Manager. Nested calls join the outer
// transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	restores := make([]func(), len(s.tables))
	for i, t := range s.tables {
		restores[i] = t.snapshot()
	}
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// RunSerializable implements tx.SerializableManager. Transactions are already
// serialized.
func (s *Store) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

var _ tx.SerializableManager = (*Store)(nil)
