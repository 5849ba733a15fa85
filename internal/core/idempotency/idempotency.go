// Package idempotency defines the key store behind the X-Idempotency-Key header.
package idempotency

import (
	"context"
	"time"
)

// DefaultTTL is how long a completed response stays replayable.
const DefaultTTL = 24 * time.Hour

// StaleAfter is how long a pending key blocks retries before it is reclaimed.
const StaleAfter = time.Minute

// Status is the state of a stored key.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Request identifies one mutating call. Reusing a key requires the same
// user, operation and body hash.
type Request struct {
	Key       string
	UserID    string
	Operation string
	Hash      string
}

// Replay is a stored HTTP response.
type Replay struct {
	StatusCode  int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Store persists idempotency keys.
type Store interface {
	// Acquire claims req.Key. It returns (nil, nil) when the caller owns the key
	// and a Replay when the request already completed.
	Acquire(ctx context.Context, req Request) (*Replay, error)

	// Complete stores the response for later replay.
	Complete(ctx context.Context, key string, r Replay) error

	// Release drops a pending key so the client may retry.
	Release(ctx context.Context, key string) error
}
