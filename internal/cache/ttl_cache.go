package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlesng35/wavtrack/pkg/metrics"
)

// DefaultTTL applies when Set is called without a positive ttl.
const DefaultTTL = 5 * time.Minute

// KeySeparator splits a cache key into its prefix and discriminator.
const KeySeparator = "-"

type entry struct {
	data      any
	expiresAt time.Time
	seq       int
}

// Stats summarises cache usage since construction.
type Stats struct {
	Entries   int    `json:"entries"`
	Prefixes  int    `json:"prefixes"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *TTLCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// TTLCache is an in-memory key/value cache with per-entry expiry and
// prefix-scoped invalidation. Keys sharing a prefix receive small sequence ids
// so listings by prefix have a stable order. It is safe for concurrent use.
type TTLCache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	pools      map[string]*sequencePool
	defaultTTL time.Duration
	now        func() time.Time

	hits, misses, evictions uint64
}

// NewTTLCache constructs an empty cache.
func NewTTLCache(opts ...Option) *TTLCache {
	c := &TTLCache{
		entries:    make(map[string]*entry),
		pools:      make(map[string]*sequencePool),
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PrefixOf returns the text before the first separator, or key itself.
func PrefixOf(key string) string {
	if idx := strings.Index(key, KeySeparator); idx >= 0 {
		return key[:idx]
	}
	return key
}

// Key joins a prefix and discriminator into a cache key.
func Key(prefix, discriminator string) string {
	return prefix + KeySeparator + discriminator
}

// Set stores data under key. A non-positive ttl uses the default. Overwriting a
// key releases its previous sequence id before a new one is assigned.
func (c *TTLCache) Set(key string, data any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)

	prefix := PrefixOf(key)
	pool, ok := c.pools[prefix]
	if !ok {
		pool = newSequencePool()
		c.pools[prefix] = pool
	}

	c.entries[key] = &entry{
		data:      data,
		expiresAt: c.now().Add(ttl),
		seq:       pool.acquire(),
	}
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Get returns the stored value and true while the entry is unexpired. Expired
// entries are evicted and reported as absent.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	if c.now().After(e.expiresAt) {
		c.removeLocked(key)
		c.misses++
		c.evictions++
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		metrics.CacheEntries.Set(float64(len(c.entries)))
		return nil, false
	}

	c.hits++
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return e.data, true
}

// GetAs returns the cached value for key when it is present and of type T.
func GetAs[T any](c *TTLCache, key string) (T, bool) {
	var zero T
	raw, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

// Delete removes key and releases its sequence id.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// DeletePrefix removes every key whose prefix equals prefix and drops the
// prefix's sequence bookkeeping. It returns the number of keys removed.
func (c *TTLCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if PrefixOf(key) == prefix {
			delete(c.entries, key)
			removed++
		}
	}
	delete(c.pools, prefix)

	metrics.CacheInvalidations.WithLabelValues(prefix).Inc()
	metrics.CacheEntries.Set(float64(len(c.entries)))
	return removed
}

// Clear drops every entry and all prefix bookkeeping.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.pools = make(map[string]*sequencePool)
	metrics.CacheEntries.Set(0)
}

// KeysByPrefix lists the keys under prefix ordered by ascending sequence id.
// Expired entries that have not been read yet are still listed.
func (c *TTLCache) KeysByPrefix(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	type keyed struct {
		key string
		seq int
	}
	matches := make([]keyed, 0)
	for key, e := range c.entries {
		if PrefixOf(key) == prefix {
			matches = append(matches, keyed{key: key, seq: e.seq})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq < matches[j].seq })

	keys := make([]string, len(matches))
	for i, m := range matches {
		keys[i] = m.key
	}
	return keys
}

// CurrentCounter returns the highest sequence id in use for prefix, or 0.
func (c *TTLCache) CurrentCounter(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pool, ok := c.pools[prefix]
	if !ok {
		return 0
	}
	return pool.max()
}

// Sweep evicts every expired entry and returns how many were removed.
func (c *TTLCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			c.removeLocked(key)
			removed++
		}
	}
	c.evictions += uint64(removed)
	metrics.CacheEntries.Set(float64(len(c.entries)))
	return removed
}

// Len reports the number of stored entries, expired or not.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Entries:   len(c.entries),
		Prefixes:  len(c.pools),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *TTLCache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)

	prefix := PrefixOf(key)
	pool, ok := c.pools[prefix]
	if !ok {
		return
	}
	pool.release(e.seq)
	if pool.empty() {
		delete(c.pools, prefix)
	}
}
