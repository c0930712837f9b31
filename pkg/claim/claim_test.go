package claim

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestAcquire_Exclusive(t *testing.T) {
	ctx := context.Background()
	rdb := newRedis(t)

	ok, err := Acquire(ctx, rdb, "display_name", "ana", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Acquire(ctx, rdb, "display_name", "ana", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim on the same name must fail")

	require.NoError(t, Release(ctx, rdb, "display_name", "ana"))

	ok, err = Acquire(ctx, rdb, "display_name", "ana", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := TTL(ctx, rdb, "display_name", "ana")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestAcquire_NilClient(t *testing.T) {
	ok, err := Acquire(context.Background(), nil, "display_name", "ana", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, Release(context.Background(), nil, "display_name", "ana"))
}
