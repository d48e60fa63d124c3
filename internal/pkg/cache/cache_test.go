package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/cache/cachetest"
)

const isolatedCacheTestRedisDB = 13

func TestBalanceCacheRoundTrip(t *testing.T) {
	client := cachetest.NewIsolatedClient(t, isolatedCacheTestRedisDB)
	c := NewBalanceCache(client, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, "user-1")
	assert.False(t, ok)

	c.Set(ctx, "user-1", 600)
	got, ok := c.Get(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, int64(600), got)

	c.Invalidate(ctx, "user-1")
	_, ok = c.Get(ctx, "user-1")
	assert.False(t, ok)
}

func TestNilBalanceCacheIsANoop(t *testing.T) {
	var c *BalanceCache
	c.Set(context.Background(), "u", 1)
	_, ok := c.Get(context.Background(), "u")
	assert.False(t, ok)
	c.Invalidate(context.Background(), "u")
}

func TestLockerExcludesSecondHolder(t *testing.T) {
	client := cachetest.NewIsolatedClient(t, isolatedCacheTestRedisDB)
	l := NewLocker(client)
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "billing:checkout:u1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "billing:checkout:u1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()

	release2, ok, err := l.TryLock(ctx, "billing:checkout:u1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestLockerReleaseKeepsForeignLock(t *testing.T) {
	client := cachetest.NewIsolatedClient(t, isolatedCacheTestRedisDB)
	l := NewLocker(client)
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "billing:checkout:u2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, client.Set(ctx, "billing:checkout:u2", "someone-else", time.Minute).Err())
	release()

	v, err := client.Get(ctx, "billing:checkout:u2").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}
