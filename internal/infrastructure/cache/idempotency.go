package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"konditer/internal/core/apperror"
	"konditer/internal/core/idempotency"
)

type idempotencyRecord struct {
	UserID    string              `json:"userId"`
	Operation string              `json:"operation"`
	Hash      string              `json:"hash"`
	Status    idempotency.Status  `json:"status"`
	Replay    *idempotency.Replay `json:"replay,omitempty"`
}

// IdempotencyStore implements idempotency.Store in Redis. A pending key
// expires after idempotency.StaleAfter; a completed one after ttl.
type IdempotencyStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a Redis idempotency store.
func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{client: client, prefix: "konditer:idem:", ttl: ttl}
}

func (s *IdempotencyStore) Acquire(ctx context.Context, req idempotency.Request) (*idempotency.Replay, error) {
	pending, err := json.Marshal(idempotencyRecord{
		UserID:    req.UserID,
		Operation: req.Operation,
		Hash:      req.Hash,
		Status:    idempotency.StatusPending,
	})
	if err != nil {
		return nil, err
	}

	key := s.prefix + req.Key
	ok, err := s.client.SetNX(ctx, key, pending, idempotency.StaleAfter).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Acquire(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var rec idempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency key: %w", err)
	}
	if rec.UserID != req.UserID || rec.Operation != req.Operation || rec.Hash != req.Hash {
		return nil, apperror.NewIdempotencyMismatch(req.Key)
	}
	if rec.Status == idempotency.StatusDone && rec.Replay != nil {
		return rec.Replay, nil
	}
	return nil, apperror.NewIdempotencyConflict(req.Key)
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, r idempotency.Replay) error {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		return fmt.Errorf("read idempotency key: %w", err)
	}
	var rec idempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("decode idempotency key: %w", err)
	}
	rec.Status = idempotency.StatusDone
	rec.Replay = &r

	done, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, done, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
