// Package cache holds the Redis-backed stores: low-stock alert suppression
// and HTTP idempotency keys.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis client.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New creates a Redis client and pings it.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	return client, nil
}

// Deduper suppresses repeated low-stock alerts with SET NX EX.
type Deduper struct {
	client redis.UniversalClient
	prefix string
}

// NewDeduper creates a deduper whose keys live under prefix.
func NewDeduper(client redis.UniversalClient, prefix string) *Deduper {
	if prefix == "" {
		prefix = "konditer:lowstock:"
	}
	return &Deduper{client: client, prefix: prefix}
}

// Acquire returns true when key was not seen within ttl.
func (d *Deduper) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup %s: %w", key, err)
	}
	return ok, nil
}
