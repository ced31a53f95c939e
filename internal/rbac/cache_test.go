package rbac_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xerppy/xerppy/internal/rbac"
)

func newTestCache(t *testing.T, ttl time.Duration) (*rbac.PermissionCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return rbac.NewPermissionCache(client, ttl), srv
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)

	cache.Set(ctx, 1, []string{"users.read", "users.write"})
	perms, ok := cache.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"users.read", "users.write"}, perms)
}

func TestCacheInvalidateSingleUser(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, 1, []string{"users.read"})
	cache.Set(ctx, 2, []string{"roles.read"})

	cache.Invalidate(ctx, 1)

	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)
	perms, ok := cache.Get(ctx, 2)
	require.True(t, ok)
	assert.Equal(t, []string{"roles.read"}, perms)
}

func TestCacheResetStalesEverything(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, 1, []string{"users.read"})
	cache.Set(ctx, 2, []string{"roles.read"})

	cache.Reset(ctx)

	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, 2)
	assert.False(t, ok)

	// The cache stays usable after the version bump.
	cache.Set(ctx, 1, []string{"users.delete"})
	perms, ok := cache.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"users.delete"}, perms)
}

func TestCacheTTLExpiry(t *testing.T) {
	cache, srv := newTestCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, 1, []string{"users.read"})
	_, ok := cache.Get(ctx, 1)
	require.True(t, ok)

	srv.FastForward(2 * time.Minute)

	_, ok = cache.Get(ctx, 1)
	assert.False(t, ok)
}

func TestCacheNilIsAlwaysMiss(t *testing.T) {
	var cache *rbac.PermissionCache
	ctx := context.Background()

	cache.Set(ctx, 1, []string{"users.read"})
	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)
	cache.Invalidate(ctx, 1)
	cache.Reset(ctx)
}
