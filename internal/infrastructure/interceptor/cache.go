package interceptor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// CacheInterceptor writes each successful tool output to the store under a
// key derived from the tool name and its JSON-encoded input, with the
// configured TTL. It does not short-circuit the chain: the tool runs on
// every Invoke even when the store already holds a value for that key.
// Lookup reads the store directly.
type CacheInterceptor struct {
	store     ports.CacheStore
	ttlSecond int
}

// NewCacheInterceptor constructs a CacheInterceptor with the given TTL.
func NewCacheInterceptor(store ports.CacheStore, ttlSeconds int) *CacheInterceptor {
	return &CacheInterceptor{store: store, ttlSecond: ttlSeconds}
}

func (c *CacheInterceptor) Name() string { return "cache" }

// Before does nothing: it neither reads the store nor changes the
// InterceptorContext, so Chain goes on to invoke the tool.
func (c *CacheInterceptor) Before(ctx context.Context, ic *ports.InterceptorContext) error {
	return nil
}

func (c *CacheInterceptor) After(ctx context.Context, ic *ports.InterceptorContext) error {
	if c.store == nil {
		return nil
	}
	key := cacheKey(ic.ToolName, ic.Input)
	return c.store.Set(ctx, key, ic.Output, c.ttlSecond)
}

func (c *CacheInterceptor) OnError(ctx context.Context, ic *ports.InterceptorContext) error {
	return nil
}

// Lookup checks the cache ahead of invoking the chain, letting callers skip
// the tool call entirely on a hit.
func (c *CacheInterceptor) Lookup(ctx context.Context, toolName string, input flow.Value) (flow.Value, bool) {
	if c.store == nil {
		return flow.Null(), false
	}
	key := cacheKey(toolName, input)
	val, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return flow.Null(), false
	}
	return val, true
}

func cacheKey(toolName string, input flow.Value) string {
	payload, _ := json.Marshal(input.Native())
	sum := sha256.Sum256(append([]byte(toolName+"|"), payload...))
	return hex.EncodeToString(sum[:])
}

var _ ports.Interceptor = (*CacheInterceptor)(nil)
