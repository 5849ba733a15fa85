// Package numerator implements core/numerator.Generator on a PostgreSQL
// sequence table.
package numerator

import (
	"context"
	"fmt"
	"time"

	corenumerator "konditer/internal/core/numerator"
	"konditer/internal/infrastructure/storage/postgres"
)

// Service hands out document numbers from sys_sequences. Each call increments
// the row of its sequence key in the caller's transaction, so a rolled back
// document gives its number back.
type Service struct {
	txm *postgres.TxManager
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service.
func New(txm *postgres.TxManager) *Service {
	return &Service{txm: txm}
}

// GetNextNumber returns the next number for cfg in the period containing t,
// for example P-20261015-0001.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, t time.Time) (string, error) {
	if s == nil || s.txm == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	key := corenumerator.SequenceKey(cfg, t)

	var seq int64
	err := s.txm.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val`, key).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next number for %s: %w", key, err)
	}

	return corenumerator.Format(cfg, t, seq), nil
}
