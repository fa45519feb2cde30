// Package cache provides generic caching primitives for the engine's
// derived data: decoded chart rasters and precomputed brush fields.
//
// This package offers two cache implementations optimized for different use cases:
//
// # Cache[K, V]
//
// A simple thread-safe LRU cache suitable for single-threaded or low-contention
// scenarios, such as the engine's brush field cache. Evicts the least recently
// used entry once the limit is exceeded.
//
//	cache := cache.New[string, int](100)
//	cache.Set("key", 42)
//	value, ok := cache.Get("key")
//
// # ShardedCache[K, V]
//
// A sharded cache for high-concurrency access, such as decoded charts shared
// between upload and render paths. Uses 16 shards to reduce lock contention,
// with proper LRU eviction per shard and zero allocations on a hit.
//
//	cache := cache.NewSharded[string, int](256, cache.StringHasher)
//	cache.Set("key", 42)
//	value, ok := cache.Get("key")
//
// # Thread Safety
//
// Both Cache and ShardedCache are safe for concurrent use.
// Neither should be copied after creation (they contain mutexes).
package cache
