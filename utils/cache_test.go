package utils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewCache(rc, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	require.True(t, c.Enabled())

	c.SetJSON("cache:topics:list", []string{"go", "rust"})
	b, ok := c.GetBytes("cache:topics:list")
	require.True(t, ok)
	assert.JSONEq(t, `["go","rust"]`, string(b))

	mr.FastForward(2 * time.Minute)
	_, ok = c.GetBytes("cache:topics:list")
	assert.False(t, ok, "entries expire with the ttl")
}

func TestCacheInvalidation(t *testing.T) {
	c, _ := newTestCache(t)
	c.SetJSON("cache:question:detail:1", 1)
	c.SetJSON("cache:question:detail:2", 2)
	c.SetJSON("cache:questions:list:topic=all:sort=new", 3)

	c.Delete("cache:question:detail:1")
	_, ok := c.GetBytes("cache:question:detail:1")
	assert.False(t, ok)
	_, ok = c.GetBytes("cache:question:detail:2")
	assert.True(t, ok)

	c.InvalidateByPrefix("cache:question")
	for _, key := range []string{"cache:question:detail:2", "cache:questions:list:topic=all:sort=new"} {
		_, ok := c.GetBytes(key)
		assert.False(t, ok, key)
	}
}

func TestDetachedCacheAlwaysMisses(t *testing.T) {
	for _, c := range []*Cache{nil, NewCache(nil, 0)} {
		assert.False(t, c.Enabled())
		c.SetJSON("k", 1)
		c.Delete("k")
		c.InvalidateByPrefix("k")
		_, ok := c.GetBytes("k")
		assert.False(t, ok)
	}
}
