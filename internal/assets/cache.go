package assets

import (
	"context"
	"sync"
	"time"
)

// Clock provides time for cache expiry.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a small keyed cache whose entries expire ttl after they are stored.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]cacheEntry[V]
}

// NewCache constructs a cache. A nil clock uses the system clock.
func NewCache[V any](ttl time.Duration, clock Clock) *Cache[V] {
	if clock == nil {
		clock = systemClock{}
	}
	return &Cache[V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry[V]),
	}
}

// Get returns the cached value if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return entry.value, true
}

// Set stores a value.
func (c *Cache[V]) Set(key string, value V) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Failed loads are not cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	c.Set(key, value)
	return value, nil
}
