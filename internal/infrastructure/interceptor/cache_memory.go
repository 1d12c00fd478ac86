package interceptor

import (
	"context"
	"sync"
	"time"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

type memoryCacheEntry struct {
	value   flow.Value
	expires time.Time
}

// MemoryCacheStore is an in-process ports.CacheStore with passive TTL
// expiry checked on read.
type MemoryCacheStore struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
	now     func() time.Time
}

// NewMemoryCacheStore constructs an empty MemoryCacheStore.
func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{entries: make(map[string]memoryCacheEntry), now: time.Now}
}

func (c *MemoryCacheStore) Get(ctx context.Context, key string) (flow.Value, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return flow.Null(), false, nil
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return flow.Null(), false, nil
	}
	return entry.value.Clone(), true, nil
}

func (c *MemoryCacheStore) Set(ctx context.Context, key string, value flow.Value, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryCacheEntry{
		value:   value.Clone(),
		expires: c.now().Add(time.Duration(ttlSeconds) * time.Second),
	}
	return nil
}

var _ ports.CacheStore = (*MemoryCacheStore)(nil)
