package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Cloner is implemented by cached values that must not be shared with
// callers. Get and Set store and hand out the result of CloneValue.
type Cloner interface {
	CloneValue() any
}

// Observer receives cache events, typically to feed metrics
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
	CacheEvict(key string)
	CacheSize(n int)
}

// Stats is a point-in-time view of the cache
type Stats struct {
	Count  int      `json:"total_keys"`
	Keys   []string `json:"keys"`
	Hits   uint64   `json:"hits"`
	Misses uint64   `json:"misses"`
}

type entry struct {
	value      any
	insertedAt time.Time
}

// Cache is an in-memory map whose entries are judged fresh per read.
// Staleness is decided by the TTL passed to Get, so one entry can serve
// callers with different freshness requirements. Expired entries are only
// removed when a Get observes them.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	now      func() time.Time
	observer Observer
	hits     uint64
	misses   uint64
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithObserver registers o for hit, miss and eviction events
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if it was inserted no more than
// ttl ago. A stale entry is evicted. A ttl of zero or less always misses.
func (c *Cache) Get(key string, ttl time.Duration) (any, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.miss(key)
		return nil, false
	}

	if ttl <= 0 || now.Sub(e.insertedAt) > ttl {
		c.mu.Lock()
		// Another writer may have refreshed the key since the read lock
		// was released.
		if cur, ok := c.entries[key]; ok && cur.insertedAt.Equal(e.insertedAt) {
			delete(c.entries, key)
			c.evicted(key, len(c.entries))
		}
		c.mu.Unlock()
		c.miss(key)
		return nil, false
	}

	atomic.AddUint64(&c.hits, 1)
	if c.observer != nil {
		c.observer.CacheHit(key)
	}
	return clone(e.value), true
}

// Set stores value under key, replacing any previous entry and restarting
// its freshness window.
func (c *Cache) Set(key string, value any) {
	stored := clone(value)

	c.mu.Lock()
	c.entries[key] = entry{value: stored, insertedAt: c.now()}
	n := len(c.entries)
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.CacheSize(n)
	}
}

// Remove deletes key. Removing a missing key is a no-op.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.evicted(key, len(c.entries))
	}
}

// Clear deletes every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	if c.observer != nil {
		c.observer.CacheSize(0)
	}
}

// Stats returns the number of entries and their sorted keys. Stale entries
// that have not been read yet are still listed.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	sort.Strings(keys)
	return Stats{
		Count:  len(keys),
		Keys:   keys,
		Hits:   atomic.LoadUint64(&c.hits),
		Misses: atomic.LoadUint64(&c.misses),
	}
}

func (c *Cache) miss(key string) {
	atomic.AddUint64(&c.misses, 1)
	if c.observer != nil {
		c.observer.CacheMiss(key)
	}
}

// evicted must be called with mu held
func (c *Cache) evicted(key string, n int) {
	if c.observer != nil {
		c.observer.CacheEvict(key)
		c.observer.CacheSize(n)
	}
}

func clone(v any) any {
	if cl, ok := v.(Cloner); ok {
		return cl.CloneValue()
	}
	return v
}
