package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/core/apperror"
	"konditer/internal/core/idempotency"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNew_Ping(t *testing.T) {
	mr, _ := newRedis(t)

	client, err := New(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = New(context.Background(), Options{Addr: mr.Addr()})
	assert.Error(t, err)
}

func TestDeduper_SuppressesWithinWindow(t *testing.T) {
	mr, client := newRedis(t)
	d := NewDeduper(client, "")
	ctx := context.Background()

	ok, err := d.Acquire(ctx, "wh:item", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Acquire(ctx, "wh:item", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.Acquire(ctx, "wh:other", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(24*time.Hour + time.Second)

	ok, err = d.Acquire(ctx, "wh:item", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("konditer:lowstock:wh:item"))
}

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	mr, client := newRedis(t)
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()
	req := idempotency.Request{Key: "k1", UserID: "u1", Operation: "POST /api/v1/purchases", Hash: "abc"}

	replay, err := store.Acquire(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, replay)

	_, err = store.Acquire(ctx, req)
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotencyConflict))

	other := req
	other.Hash = "def"
	_, err = store.Acquire(ctx, other)
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotencyMismatch))

	require.NoError(t, store.Complete(ctx, "k1", idempotency.Replay{
		StatusCode: 201, ContentType: "application/json", Body: []byte(`{"id":"x"}`),
	}))

	replay, err = store.Acquire(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.JSONEq(t, `{"id":"x"}`, string(replay.Body))

	mr.FastForward(time.Hour + time.Second)
	replay, err = store.Acquire(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, replay)
}

func TestIdempotencyStore_Release(t *testing.T) {
	_, client := newRedis(t)
	store := NewIdempotencyStore(client, 0)
	ctx := context.Background()
	req := idempotency.Request{Key: "k2", UserID: "u1", Operation: "POST /x", Hash: "h"}

	_, err := store.Acquire(ctx, req)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "k2"))

	replay, err := store.Acquire(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, replay)
}
