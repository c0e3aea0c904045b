// Package cache provides a generic, thread-safe LRU cache with per-entry TTL.
//
// It backs the in-memory caching layers of the resolution engine and the
// entitlement mapper: bounded capacity with least-recently-used eviction, and
// expiry so invalidation misses never serve stale authorization data forever.
//
//	c := cache.NewTTL[string, []int64](1000, 5*time.Minute)
//	c.Set("user:42", ids)
//	if ids, ok := c.Get("user:42"); ok { ... }
package cache
