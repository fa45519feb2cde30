package cache

import "sync"

// Cache is a mutex-guarded LRU map for low-contention callers, such as
// the engine's brush field cache where a handful of fields cycle as the
// painter switches brushes.
//
// Once the cache holds more than its limit, the least recently used
// entry is dropped. Cache must not be copied after creation.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*cacheEntry[K, V]
	order   *lruList[K]
	limit   int
}

type cacheEntry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// New creates a cache evicting beyond limit entries. A limit of 0 means
// unlimited.
func New[K comparable, V any](limit int) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*cacheEntry[K, V]),
		order:   newLRUList[K](),
		limit:   limit,
	}
}

// Get retrieves a value and marks it most recently used.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(entry.node)
	return entry.value, true
}

// Set stores a value, evicting the oldest entries if the cache grows
// past its limit.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// GetOrCreate returns the cached value or builds and caches it. The
// create function runs under the cache lock, so a key is never built
// twice; keep it cheap or accept that other keys wait.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.order.MoveToFront(entry.node)
		return entry.value
	}
	value := create()
	c.set(key, value)
	return value
}

// set inserts or updates an entry. Caller must hold c.mu.
func (c *Cache[K, V]) set(key K, value V) {
	if entry, ok := c.entries[key]; ok {
		entry.value = value
		c.order.MoveToFront(entry.node)
		return
	}
	c.entries[key] = &cacheEntry[K, V]{value: value, node: c.order.PushFront(key)}
	for c.limit > 0 && len(c.entries) > c.limit {
		oldest, ok := c.order.RemoveOldest()
		if !ok {
			break
		}
		delete(c.entries, oldest)
	}
}

// Delete removes an entry. Returns true if the entry existed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.Remove(entry.node)
	delete(c.entries, key)
	return true
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*cacheEntry[K, V])
	c.order.Clear()
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the entry limit.
func (c *Cache[K, V]) Capacity() int {
	return c.limit
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:      len(c.entries),
		Capacity: c.limit,
	}
}

// Stats describes the state of a Cache or ShardedCache.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the entry limit, per shard for ShardedCache.
	Capacity int
	// TotalCapacity is the limit across all shards (ShardedCache only).
	TotalCapacity int
	// Hits counts lookups that found an entry (ShardedCache only).
	Hits uint64
	// Misses counts lookups that did not (ShardedCache only).
	Misses uint64
	// HitRate is Hits over all lookups, 0 to 1 (ShardedCache only).
	HitRate float64
	// Evictions counts entries dropped over capacity (ShardedCache only).
	Evictions uint64
}
