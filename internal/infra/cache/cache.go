// Package cache provides a small in-process TTL cache for derived
// aggregates. Entries are invalidated explicitly on writes to the
// underlying records, or expire after the configured TTL.
package cache

import (
	"sync"
	"time"
)

// Cache is a TTL-bounded key-value cache. Safe for concurrent readers with
// the engine's single logical writer.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	value   any
	expires time.Time
}

// New creates a cache with the given TTL. A non-positive TTL disables
// caching entirely: Get never hits.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value under key with the configured TTL.
func (c *Cache) Set(key string, value any) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expires: c.now().Add(c.ttl)}
}

// Invalidate drops one key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll drops every entry. Called on any write to the underlying
// daily records.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of live entries (expired ones included until read).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
