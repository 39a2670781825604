package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := newMemoryCache(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "emb:abc", `[0.1,0.2]`, 0)

	got, ok := c.Get(ctx, "emb:abc")
	require.True(t, ok)
	assert.Equal(t, `[0.1,0.2]`, got)
}

func TestMemoryCache_MissingKey(t *testing.T) {
	c := newMemoryCache(Config{DefaultTTL: time.Minute})
	defer c.Close()

	_, ok := c.Get(context.Background(), "nope")
	assert.False(t, ok)
}

func TestMemoryCache_ShortTTLExpires(t *testing.T) {
	c := newMemoryCache(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := newMemoryCache(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", "v", 0)
	c.Delete(ctx, "k")

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_EvictsAtCapacity(t *testing.T) {
	c := newMemoryCache(Config{DefaultTTL: time.Minute, MemoryMaxEntries: 2})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", "1", 0)
	c.Set(ctx, "b", "2", 0)
	c.Set(ctx, "c", "3", 0)

	_, okA := c.Get(ctx, "a")
	_, okC := c.Get(ctx, "c")
	assert.False(t, okA, "oldest entry should be evicted")
	assert.True(t, okC)
}

func TestMemoryCache_JSONRoundTrip(t *testing.T) {
	c := newMemoryCache(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.SetJSON(ctx, "emb:vec", []float32{0.1, 0.2, 0.3}, 0)

	var got []float32
	require.True(t, c.GetJSON(ctx, "emb:vec", &got))
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got)
}

func TestMemoryCache_GetJSONRejectsCorruptValue(t *testing.T) {
	c := newMemoryCache(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "emb:bad", "not json", 0)

	var got []float32
	assert.False(t, c.GetJSON(ctx, "emb:bad", &got))
}

func TestMemoryCache_GetJSONMiss(t *testing.T) {
	c := newMemoryCache(Config{DefaultTTL: time.Minute})
	defer c.Close()

	var got map[string]int
	assert.False(t, c.GetJSON(context.Background(), "nope", &got))
}

func TestMemoryCache_ClearPattern(t *testing.T) {
	c := newMemoryCache(Config{DefaultTTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "emb:a", "1", 0)
	c.Set(ctx, "emb:b", "2", 0)
	c.Set(ctx, "search:a", "3", 0)

	c.ClearPattern(ctx, "emb:")

	_, okA := c.Get(ctx, "emb:a")
	_, okB := c.Get(ctx, "emb:b")
	_, okS := c.Get(ctx, "search:a")
	assert.False(t, okA)
	assert.False(t, okB)
	assert.True(t, okS, "keys outside the prefix must survive")
}

func TestNew_FallsBackToMemoryWithoutRedis(t *testing.T) {
	c := New(context.Background(), Config{}, nil)
	defer c.Close()

	assert.Equal(t, "memory", c.Backend())
}

func TestNew_FallsBackWhenRedisUnreachable(t *testing.T) {
	// Port 1 should refuse connections immediately
	c := New(context.Background(), Config{RedisAddr: "127.0.0.1:1"}, nil)
	defer c.Close()

	assert.Equal(t, "memory", c.Backend())
}
