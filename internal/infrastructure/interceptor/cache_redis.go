package interceptor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// RedisCacheStore implements ports.CacheStore against a Redis instance,
// for sharing cached tool results across multiple engine processes.
type RedisCacheStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCacheStore constructs a RedisCacheStore over an existing client.
func NewRedisCacheStore(client *redis.Client, prefix string) *RedisCacheStore {
	return &RedisCacheStore{client: client, prefix: prefix}
}

func (c *RedisCacheStore) Get(ctx context.Context, key string) (flow.Value, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return flow.Null(), false, nil
	}
	if err != nil {
		return flow.Null(), false, flow.NewExecutionError(flow.ErrConnection, "interceptor.cache.redis", "get failed", err)
	}
	var native interface{}
	if err := json.Unmarshal(raw, &native); err != nil {
		return flow.Null(), false, flow.NewExecutionError(flow.ErrSystem, "interceptor.cache.redis", "unmarshal cached value", err)
	}
	return flow.FromNative(native), true, nil
}

func (c *RedisCacheStore) Set(ctx context.Context, key string, value flow.Value, ttlSeconds int) error {
	raw, err := json.Marshal(value.Native())
	if err != nil {
		return flow.NewExecutionError(flow.ErrSystem, "interceptor.cache.redis", "marshal value", err)
	}
	ttl := time.Duration(ttlSeconds) * time.Second
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return flow.NewExecutionError(flow.ErrConnection, "interceptor.cache.redis", "set failed", err)
	}
	return nil
}

var _ ports.CacheStore = (*RedisCacheStore)(nil)
