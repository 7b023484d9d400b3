package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL is used when a cache is built without an explicit default
const DefaultTTL = 30 * time.Second

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// expired reports whether the entry is stale at now. An entry whose expiry
// equals now is already stale.
func (e entry[V]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Cache is a TTL keyed store safe for concurrent use. A single mutex guards
// every operation for its full duration.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	defaultTTL time.Duration
	clone      func(V) V
	now        func() time.Time
	metrics    *metrics
}

// Option configures a Cache
type Option[V any] func(*Cache[V])

// WithClone sets the function used to copy values on the way in and out.
// Without it values are returned as stored, which is only safe for
// immutable types.
func WithClone[V any](clone func(V) V) Option[V] {
	return func(c *Cache[V]) {
		c.clone = clone
	}
}

// WithClock replaces time.Now
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// New creates a cache. A non-positive defaultTTL falls back to DefaultTTL.
func New[V any](defaultTTL time.Duration, opts ...Option[V]) *Cache[V] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	c := &Cache[V]{
		entries:    make(map[string]entry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
		metrics:    newMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultTTLValue returns the TTL used by Set
func (c *Cache[V]) DefaultTTLValue() time.Duration {
	return c.defaultTTL
}

// Get returns the value for key. An entry found past its expiry is removed
// and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e.expired(c.now()) {
		delete(c.entries, key)
		c.mu.Unlock()
		c.metrics.recordExpiration(1)
		c.metrics.recordMiss()
		return zero, false
	}
	c.mu.Unlock()

	if !ok {
		c.metrics.recordMiss()
		return zero, false
	}

	c.metrics.recordHit()
	return c.copy(e.value), true
}

// Set stores value under key with the default TTL
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key, replacing any previous entry. A
// non-positive ttl means the default TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	value = c.copy(value)

	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()

	c.metrics.recordSet()
}

// SetSeconds stores value with a TTL in whole seconds
func (c *Cache[V]) SetSeconds(key string, value V, seconds int) {
	c.SetWithTTL(key, value, time.Duration(seconds)*time.Second)
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeletePrefix removes every key starting with prefix and returns the count
func (c *Cache[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes every entry
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// CleanupExpired removes every entry that is stale as of now and returns how
// many were removed
func (c *Cache[V]) CleanupExpired() int {
	c.mu.Lock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.metrics.recordExpiration(removed)
	return removed
}

// Len returns the number of stored entries, including stale ones not yet
// removed
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:        c.metrics.hits.Load(),
		Misses:      c.metrics.misses.Load(),
		Sets:        c.metrics.sets.Load(),
		Expirations: c.metrics.expirations.Load(),
		Items:       int64(c.Len()),
	}.WithHitRate()
}

func (c *Cache[V]) copy(v V) V {
	if c.clone == nil {
		return v
	}
	return c.clone(v)
}

// CloneBytes copies a byte slice; use with WithClone for []byte caches
func CloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// metrics tracks cache counters
type metrics struct {
	hits        atomic.Int64
	misses      atomic.Int64
	sets        atomic.Int64
	expirations atomic.Int64
}

func newMetrics() *metrics {
	return &metrics{}
}

func (m *metrics) recordHit()  { m.hits.Add(1) }
func (m *metrics) recordMiss() { m.misses.Add(1) }
func (m *metrics) recordSet()  { m.sets.Add(1) }

func (m *metrics) recordExpiration(n int) {
	if n > 0 {
		m.expirations.Add(int64(n))
	}
}
