package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_CountAbsentAddress(t *testing.T) {
	store, _ := newTestRedisStore(t, 15*time.Minute)

	count, err := store.Count(context.Background(), "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRedisStore_IncrementCreatesWithTTL(t *testing.T) {
	store, mr := newTestRedisStore(t, 15*time.Minute)
	ctx := context.Background()

	count, err := store.Increment(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.Increment(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ttl := mr.TTL(keyPrefix + "203.0.113.1")
	assert.Equal(t, 15*time.Minute, ttl)
}

func TestRedisStore_EntryExpiresAfterWindow(t *testing.T) {
	store, mr := newTestRedisStore(t, 15*time.Minute)
	ctx := context.Background()

	_, err := store.Increment(ctx, "203.0.113.1")
	require.NoError(t, err)

	mr.FastForward(15*time.Minute + time.Second)

	count, err := store.Count(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.Increment(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "expired entry restarts from scratch")
}

func TestRedisStore_IncrementRefreshesTTL(t *testing.T) {
	store, mr := newTestRedisStore(t, 15*time.Minute)
	ctx := context.Background()

	_, err := store.Increment(ctx, "203.0.113.1")
	require.NoError(t, err)

	mr.FastForward(10 * time.Minute)

	count, err := store.Increment(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A write at minute 10 pushes expiry to minute 25; at minute 24 the
	// entry must still be present.
	mr.FastForward(14 * time.Minute)

	count, err = store.Count(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRedisStore_Clear(t *testing.T) {
	store, _ := newTestRedisStore(t, 15*time.Minute)
	ctx := context.Background()

	_, err := store.Increment(ctx, "203.0.113.1")
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "203.0.113.1"))

	count, err := store.Count(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRedisStore_BackendDownSurfacesError(t *testing.T) {
	store, mr := newTestRedisStore(t, 15*time.Minute)
	mr.Close()

	_, err := store.Count(context.Background(), "203.0.113.1")
	assert.Error(t, err)

	_, err = store.Increment(context.Background(), "203.0.113.1")
	assert.Error(t, err)
}
