// Package ratelimiter provides token bucket rate limiting with sharded
// in-memory storage, a Redis backend for multi-instance deployments, and
// HTTP middleware.
//
// The token bucket allows bursts up to Capacity while refilling at
// RefillRate tokens per RefillInterval. The memory store spreads buckets
// across a fixed set of shards with independent locks so hot endpoints do
// not serialize on one mutex; the Redis store runs the same algorithm in
// a Lua script so all service instances share one counter space.
//
//	config := ratelimiter.Config{
//	    Capacity:       100,
//	    RefillRate:     10,
//	    RefillInterval: time.Second,
//	}
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := limiter.Allow(ctx, "203.0.113.7:verify")
//
// Middleware keys requests by client IP and route pattern, answers over
// budget requests with 429 and a Retry-After header, and exposes the
// X-RateLimit-* headers on every response.
package ratelimiter
