package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

// TTLCache is a goroutine-safe map-backed cache with per-item TTL and an
// optional size bound. Expired entries are dropped lazily on access, by
// PurgeExpired, or when the bound forces a sweep.
type TTLCache[K comparable, V any] struct {
	mu       sync.RWMutex
	items    map[K]entry[V]
	maxItems int
	now      func() time.Time
}

// New returns a cache holding at most maxItems entries; maxItems <= 0 means
// unbounded.
func New[K comparable, V any](maxItems int) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		items:    make(map[K]entry[V]),
		maxItems: maxItems,
		now:      time.Now,
	}
}

func (c *TTLCache[K, V]) expired(e entry[V], at time.Time) bool {
	return !e.expiresAt.IsZero() && at.After(e.expiresAt)
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok || c.expired(e, c.now()) {
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	at := c.now()
	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.purgeLocked(at)
		// Still full: evict the entry closest to expiry.
		if len(c.items) >= c.maxItems {
			c.evictOneLocked()
		}
	}

	var exp time.Time
	if ttl > 0 {
		exp = at.Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: exp}
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	at := c.now()
	count := 0
	for _, e := range c.items {
		if !c.expired(e, at) {
			count++
		}
	}
	return count
}

func (c *TTLCache[K, V]) PurgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked(c.now())
}

func (c *TTLCache[K, V]) purgeLocked(at time.Time) {
	for k, e := range c.items {
		if c.expired(e, at) {
			delete(c.items, k)
		}
	}
}

func (c *TTLCache[K, V]) evictOneLocked() {
	var (
		victim K
		soonest time.Time
		found   bool
	)
	for k, e := range c.items {
		if e.expiresAt.IsZero() {
			if !found {
				victim, found = k, true
			}
			continue
		}
		if !found || soonest.IsZero() || e.expiresAt.Before(soonest) {
			victim, soonest, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.items, victim)
	}
}

var _ Cache[string, int] = (*TTLCache[string, int])(nil)
