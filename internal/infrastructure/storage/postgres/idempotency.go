package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"konditer/internal/core/apperror"
	"konditer/internal/core/clock"
	"konditer/internal/core/idempotency"
)

type idempotencyRecord struct {
	Key         string             `db:"idempotency_key"`
	UserID      string             `db:"user_id"`
	Operation   string             `db:"operation"`
	Status      idempotency.Status `db:"status"`
	RequestHash string             `db:"request_hash"`
	Response    []byte             `db:"response"`
	StatusCode  *int               `db:"response_status"`
	ContentType *string            `db:"response_content_type"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
	ExpiresAt   time.Time          `db:"expires_at"`
}

// IdempotencyStore implements idempotency.Store on sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	clock     clock.Clock
	ttl       time.Duration
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, clk clock.Clock, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{txManager: txManager, clock: clk, ttl: ttl}
}

// Acquire claims a key, replays a finished response or reports a conflict.
func (s *IdempotencyStore) Acquire(ctx context.Context, req idempotency.Request) (*idempotency.Replay, error) {
	now := s.clock.Now().UTC()
	q := s.txManager.GetQuerier(ctx)

	tag, err := q.Exec(ctx, `
		INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		req.Key, req.UserID, req.Operation, idempotency.StatusPending, req.Hash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	var record idempotencyRecord
	err = pgxscan.Get(ctx, q, &record, `
		SELECT idempotency_key, user_id, operation, status, request_hash, response,
		       response_status, response_content_type, created_at, updated_at, expires_at
		FROM sys_idempotency
		WHERE idempotency_key = $1`, req.Key)
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	if record.UserID != req.UserID || record.Operation != req.Operation || record.RequestHash != req.Hash {
		return nil, apperror.NewIdempotencyMismatch(req.Key).
			WithDetail("stored_operation", record.Operation).
			WithDetail("request_operation", req.Operation)
	}

	switch record.Status {
	case idempotency.StatusDone:
		replay := &idempotency.Replay{StatusCode: 200, ContentType: "application/json", Body: record.Response}
		if record.StatusCode != nil {
			replay.StatusCode = *record.StatusCode
		}
		if record.ContentType != nil && *record.ContentType != "" {
			replay.ContentType = *record.ContentType
		}
		return replay, nil

	default:
		if now.Sub(record.UpdatedAt) <= idempotency.StaleAfter {
			return nil, apperror.NewIdempotencyConflict(req.Key)
		}
		tag, err := q.Exec(ctx, `
			UPDATE sys_idempotency SET updated_at = $1
			WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4`,
			now, req.Key, idempotency.StatusPending, record.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("reclaim stale key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperror.NewIdempotencyConflict(req.Key)
		}
		return nil, nil
	}
}

// Complete stores the response of a finished request.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, r idempotency.Replay) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE idempotency_key = $6`,
		idempotency.StatusDone, r.Body, r.StatusCode, r.ContentType, s.clock.Now().UTC(), key)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release removes a pending key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_idempotency WHERE idempotency_key = $1 AND status = $2`,
		key, idempotency.StatusPending)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM sys_idempotency WHERE expires_at < $1`, s.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
