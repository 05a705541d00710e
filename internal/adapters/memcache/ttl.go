// Package memcache holds small process-local caches.
package memcache

import (
	"sync"
	"time"

	"free_cabins/internal/adapters/observability"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL maps keys to values with a fixed per-entry lifetime. Expired entries
// are dropped lazily on lookup; there is no background sweep and no timer per
// entry.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time
	name    string
}

func NewTTL[K comparable, V any](name string, ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{entries: make(map[K]entry[V]), ttl: ttl, now: time.Now, name: name}
}

// WithClock swaps the time source (tests).
func (c *TTL[K, V]) WithClock(now func() time.Time) *TTL[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

func (c *TTL[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		observability.ObserveCache(c.name, "miss")
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, k)
		observability.ObserveCache(c.name, "evict")
		var zero V
		return zero, false
	}
	observability.ObserveCache(c.name, "hit")
	return e.value, true
}

func (c *TTL[K, V]) Set(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = entry[V]{value: v, expiresAt: c.now().Add(c.ttl)}
	observability.ObserveCache(c.name, "set")
}

func (c *TTL[K, V]) Delete(k K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k)
}

// Len counts stored entries, expired ones included until they are looked up.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
