package cache

import (
	"context"
	"sync"
	"time"
)

// ResultCache stores formatted lookup payloads keyed by normalized number.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a thread-safe map with a TTL per entry. Expired entries are
// evicted lazily on read; there is no background sweep and no capacity bound.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]*entry
	now  func() time.Time
}

type MemoryCacheOption func(*MemoryCache)

// WithTimeProvider overrides the clock, for tests.
func WithTimeProvider(now func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		data: make(map[string]*entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value if it hasn't expired. A read past the expiry is a
// miss and removes the stale entry.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	e, exists := c.data[key]
	if !exists {
		c.mu.RUnlock()
		return "", false
	}
	isExpired := c.now().After(e.expiresAt) || c.now().Equal(e.expiresAt)
	value := e.value
	c.mu.RUnlock()

	if isExpired {
		c.mu.Lock()
		if current, ok := c.data[key]; ok && !c.now().Before(current.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return "", false
	}

	return value, true
}

// Set stores a value, unconditionally overwriting any existing entry.
func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Len reports the number of entries currently held, including any that have
// expired but not yet been evicted.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
