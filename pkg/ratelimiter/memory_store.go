package ratelimiter

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// shardCount is a power of two so the shard index is a cheap mask.
const shardCount = 256

// bucket represents a token bucket state.
type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time // used by cleanup to identify stale buckets
}

// shard holds an independently locked slice of the key space. Keys are
// spread across shards by hash so concurrent requests for different keys
// rarely contend on the same mutex.
type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// MemoryStore implements Store with sharded in-memory storage.
type MemoryStore struct {
	shards [shardCount]*shard

	cleanupInterval time.Duration
	staleThreshold  time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the cleanup interval for removing stale buckets.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithStaleThreshold sets how long an untouched bucket survives before
// cleanup removes it.
func WithStaleThreshold(threshold time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if threshold > 0 {
			ms.staleThreshold = threshold
		}
	}
}

// NewMemoryStore creates a new sharded in-memory store with optional cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		cleanupInterval: 5 * time.Minute,
		staleThreshold:  time.Hour,
		stopCleanup:     make(chan struct{}),
	}
	for i := range ms.shards {
		ms.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

func (ms *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return ms.shards[h.Sum32()&(shardCount-1)]
}

// ConsumeTokens attempts to consume tokens from the key's bucket.
func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error) {
	sh := ms.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := time.Now()
	b, exists := sh.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     config.Capacity,
			lastRefill: now,
			lastAccess: now,
		}
		sh.buckets[key] = b
	}

	// Refill whole intervals since the last refill, capped so a long-idle
	// bucket cannot overflow the token counter.
	elapsed := now.Sub(b.lastRefill)
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervalsElapsed := int(min(int64(elapsed/config.RefillInterval), maxIntervals))

	if intervalsElapsed > 0 {
		tokensToAdd := intervalsElapsed * config.RefillRate
		b.tokens = min(b.tokens+tokensToAdd, config.Capacity)
		b.lastRefill = now
	}

	b.tokens -= tokens
	remaining = b.tokens
	b.lastAccess = now

	resetAt = b.lastRefill.Add(config.RefillInterval)

	return remaining, resetAt, nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	sh := ms.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.buckets, key)
	return nil
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stopCleanup:
			return
		}
	}
}

// removeStale walks the shards one at a time, so cleanup never holds more
// than one shard lock at once.
func (ms *MemoryStore) removeStale() {
	now := time.Now()
	for _, sh := range ms.shards {
		sh.mu.Lock()
		for key, b := range sh.buckets {
			if now.Sub(b.lastAccess) > ms.staleThreshold {
				delete(sh.buckets, key)
			}
		}
		sh.mu.Unlock()
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() {
		close(ms.stopCleanup)
	})
}
