// Package cache stores GraphQL query results in Redis.
//
// Results are keyed by operation name and variables, so the same page of the
// same filter is served from Redis until its entry expires:
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Operation: "GetCharacters",
//		Variables: map[string]any{"page": 2, "status": "Dead"},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// query the API, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(body, 5*time.Minute))
//	}
//
// Expired entries are never returned; Redis also drops them on its own because
// every entry is written with its TTL.
//
// # Metrics
//
//   - rm_cache_hits_total{layer="redis"}
//   - rm_cache_misses_total
//   - rm_cache_size_bytes{layer="redis"}
//   - rm_cache_errors_total{operation}
package cache
