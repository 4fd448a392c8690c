// Package cachestore provides versioned, namespaced response caching with a
// Redis backend.
//
// The store partitions cached payloads into named namespaces (static assets,
// API responses, images, search index), each carrying a version string. The
// invalidation model is deliberately coarse: on activation, every namespace
// whose version is not in the current expected set is deleted in full. There
// is no per-entry eviction for these caches; stale code ships a new version
// string and old payloads are purged wholesale.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create store and open a namespace
//	store := cachestore.NewStore(redisClient)
//	api := store.Open(cachestore.Namespace{Kind: cachestore.KindAPI, Version: "v2"})
//
//	// Build a key from a request (query parameter order does not matter)
//	key := cachestore.KeyFromRequest(req)
//
//	// Get from cache
//	entry, err := api.Get(ctx, key)
//	if err == cachestore.ErrCacheMiss {
//		// Cache miss - fetch from upstream
//	}
//
// # Activation Sweep
//
//	// Delete every namespace not in the current expected set
//	removed, err := store.EnsureCurrent(ctx, []cachestore.Namespace{
//		{Kind: cachestore.KindStatic, Version: "v2"},
//		{Kind: cachestore.KindAPI, Version: "v2"},
//	})
//
// Namespace deletion is irreversible and non-transactional across namespaces;
// a crash mid-sweep can leave one stale namespace behind until the next
// activation, which is acceptable for a cache.
//
// # Metrics
//
// The store exports Prometheus metrics:
//
//   - weather_cache_hits_total{namespace} - Cache hits
//   - weather_cache_misses_total{namespace} - Cache misses
//   - weather_cache_size_bytes{namespace} - Bytes written
//   - weather_cache_namespace_purges_total - Namespaces deleted by sweeps
//   - weather_cache_errors_total{operation} - Cache operation errors
package cachestore
