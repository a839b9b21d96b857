package cache

import "sync"

// Cache is a generic thread-safe cache of reference-counted values.
// Lookups upgrade a live entry to a new strong reference or miss.
//
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*Handle[K, V]
	onEvict func(K, V)
	lazy    bool

	hits      uint64
	misses    uint64
	evictions uint64
}

// Handle is a strong reference to a cached value.
// Every Handle obtained from the cache or from Acquire must be released
// exactly once per acquisition.
type Handle[K comparable, V any] struct {
	key   K
	value V
	refs  int
	cache *Cache[K, V]
}

// New creates a cache that frees a value as soon as its last reference
// is released. onEvict may be nil.
func New[K comparable, V any](onEvict func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*Handle[K, V]),
		onEvict: onEvict,
	}
}

// NewLazy creates a cache that keeps unreferenced values until Sweep.
func NewLazy[K comparable, V any](onEvict func(K, V)) *Cache[K, V] {
	c := New[K, V](onEvict)
	c.lazy = true
	return c
}

// Get upgrades the entry for key to a new strong reference.
// Returns (nil, false) if there is no live entry.
func (c *Cache[K, V]) Get(key K) (*Handle[K, V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	h.refs++
	return h, true
}

// GetOrCreate returns a strong reference to the value for key, calling
// create on a miss. A failed create leaves the cache unchanged.
// create is called under the cache lock and must not use the cache.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (*Handle[K, V], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.entries[key]; ok {
		c.hits++
		h.refs++
		return h, nil
	}
	c.misses++

	value, err := create()
	if err != nil {
		return nil, err
	}
	h := &Handle[K, V]{key: key, value: value, refs: 1, cache: c}
	c.entries[key] = h
	return h, nil
}

// Sweep frees every entry without references and returns how many were freed.
// It is a no-op for eager caches, which never hold such entries.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	var freed []*Handle[K, V]
	for key, h := range c.entries {
		if h.refs == 0 {
			delete(c.entries, key)
			freed = append(freed, h)
		}
	}
	c.evictions += uint64(len(freed))
	c.mu.Unlock()

	for _, h := range freed {
		c.evict(h)
	}
	return len(freed)
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Keys returns the keys of all entries in unspecified order.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Len:       len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *Cache[K, V]) evict(h *Handle[K, V]) {
	if c.onEvict != nil {
		c.onEvict(h.key, h.value)
	}
}

// Value returns the referenced value.
func (h *Handle[K, V]) Value() V { return h.value }

// Key returns the cache key of the value.
func (h *Handle[K, V]) Key() K { return h.key }

// Refs returns the current number of strong references.
func (h *Handle[K, V]) Refs() int {
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()
	return h.refs
}

// Acquire adds a strong reference and returns h.
func (h *Handle[K, V]) Acquire() *Handle[K, V] {
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()
	h.refs++
	return h
}

// Release drops one strong reference. Releasing the last reference of an
// eager cache frees the value. Release panics on over-release.
func (h *Handle[K, V]) Release() {
	c := h.cache
	c.mu.Lock()
	if h.refs <= 0 {
		c.mu.Unlock()
		panic("cache: handle released more often than acquired")
	}
	h.refs--
	if h.refs > 0 || c.lazy {
		c.mu.Unlock()
		return
	}
	if c.entries[h.key] == h {
		delete(c.entries, h.key)
	}
	c.evictions++
	c.mu.Unlock()

	c.evict(h)
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Hits is the number of lookups that found a live entry.
	Hits uint64
	// Misses is the number of lookups that found nothing.
	Misses uint64
	// Evictions is the number of freed entries.
	Evictions uint64
}

// HitRate returns the hit rate 0.0 to 1.0.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
