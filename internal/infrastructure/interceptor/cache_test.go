package interceptor

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archflow/archengine/internal/domain/flow"
)

func TestMemoryCacheStoreMissThenHit(t *testing.T) {
	store := NewMemoryCacheStore()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k1", flow.String("v1"), 60))
	val, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, flow.String("v1"), val)
}

func TestMemoryCacheStoreExpiresPastTTL(t *testing.T) {
	store := NewMemoryCacheStore()
	fixed := time.Unix(1000, 0)
	store.now = func() time.Time { return fixed }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", flow.Int(1), 5))
	store.now = func() time.Time { return fixed.Add(6 * time.Second) }

	_, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok, "entry must be treated as a miss once its TTL has elapsed")
}

func TestMemoryCacheStoreReturnsIndependentClones(t *testing.T) {
	store := NewMemoryCacheStore()
	ctx := context.Background()
	original := flow.Map(map[string]flow.Value{"count": flow.Int(1)})
	require.NoError(t, store.Set(ctx, "k1", original, 60))

	got, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	// Mutating the retrieved value must not affect what's stored.
	m, _ := got.Native().(map[string]interface{})
	m["count"] = 999

	got2, _, _ := store.Get(ctx, "k1")
	assert.Equal(t, flow.Int(1), got2.Get("count"))
}

func TestCacheInterceptorLookupHitsAfterAfterHookPopulatesStore(t *testing.T) {
	store := NewMemoryCacheStore()
	c := NewCacheInterceptor(store, 60)
	ctx := context.Background()

	chain := NewChain(c)
	tool := &stubTool{name: "lookup", output: flow.String("result")}
	out, err := chain.Invoke(ctx, tool, "step1", flow.String("arg"))
	require.NoError(t, err)
	assert.Equal(t, flow.String("result"), out)

	cached, ok := c.Lookup(ctx, "lookup", flow.String("arg"))
	require.True(t, ok)
	assert.Equal(t, flow.String("result"), cached)
}

func TestCacheInterceptorLookupMissesForUnseenInput(t *testing.T) {
	c := NewCacheInterceptor(NewMemoryCacheStore(), 60)
	_, ok := c.Lookup(context.Background(), "lookup", flow.String("never seen"))
	assert.False(t, ok)
}

func TestCacheInterceptorWithNilStoreIsNoop(t *testing.T) {
	c := NewCacheInterceptor(nil, 60)
	ctx := context.Background()
	chain := NewChain(c)
	tool := &stubTool{name: "echo", output: flow.Int(1)}

	_, err := chain.Invoke(ctx, tool, "step1", flow.Null())
	require.NoError(t, err)

	_, ok := c.Lookup(ctx, "echo", flow.Null())
	assert.False(t, ok)
}

func TestRedisCacheStoreMissThenHit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisCacheStore(client, "archengine:cache:")
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	val := flow.Map(map[string]flow.Value{"hits": flow.Int(3)})
	require.NoError(t, store.Set(ctx, "k1", val, 60))

	got, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, flow.Int(3), got.Get("hits"))
}

func TestRedisCacheStoreExpiresViaRedisTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisCacheStore(client, "archengine:cache:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", flow.String("v"), 1))
	mr.FastForward(2 * time.Second)

	_, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}
