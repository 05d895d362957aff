package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*UnreadCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	return NewUnreadCache(cli, time.Minute), mr
}

func set(t *testing.T, c *UnreadCache, userID string, n int) {
	t.Helper()
	ctx := context.Background()
	gen, err := c.Generation(ctx, userID)
	require.NoError(t, err)
	written, err := c.SetAt(ctx, userID, n, gen)
	require.NoError(t, err)
	require.True(t, written)
}

func TestUnreadCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	_, ok, err := c.Get(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err := c.Generation(ctx, "a1")
	require.NoError(t, err)
	written, err := c.SetAt(ctx, "a1", 7, gen)
	require.NoError(t, err)
	assert.True(t, written)
	n, ok, err := c.Get(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, n)
}

func TestUnreadCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	set(t, c, "a1", 1)
	set(t, c, "u1", 2)
	require.NoError(t, c.Invalidate(ctx, "a1", "u1"))
	require.NoError(t, c.Invalidate(ctx))

	for _, id := range []string{"a1", "u1"} {
		_, ok, err := c.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestUnreadCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	set(t, c, "a1", 3)
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnreadCacheCorruptValueIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	require.NoError(t, mr.Set(unreadPrefix+"a1", "garbage"))
	_, ok, err := c.Get(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnreadCacheSkipsWriteAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)

	gen, err := c.Generation(ctx, "a1")
	require.NoError(t, err)
	// a change lands between loading the total and writing it back
	require.NoError(t, c.Invalidate(ctx, "a1"))

	written, err := c.SetAt(ctx, "a1", 0, gen)
	require.NoError(t, err)
	assert.False(t, written)
	assert.False(t, mr.Exists(unreadPrefix+"a1"))

	gen2, err := c.Generation(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, gen+1, gen2)
	written, err = c.SetAt(ctx, "a1", 1, gen2)
	require.NoError(t, err)
	assert.True(t, written)
}
