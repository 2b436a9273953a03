package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript runs the token bucket algorithm atomically on the Redis
// side, so concurrent instances never interleave a read-modify-write.
//
// KEYS[1] bucket hash key
// ARGV: capacity, refill rate, refill interval ms, tokens requested, now ms
// Returns: {remaining, reset at ms}
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])
local now_ms = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill_ms = tonumber(state[2])

if tokens == nil then
  tokens = capacity
  last_refill_ms = now_ms
end

local elapsed = now_ms - last_refill_ms
local max_intervals = math.floor(capacity / refill_rate) + 1
local intervals = math.floor(elapsed / interval_ms)
if intervals > max_intervals then
  intervals = max_intervals
end

if intervals > 0 then
  tokens = math.min(tokens + intervals * refill_rate, capacity)
  last_refill_ms = now_ms
end

tokens = tokens - requested

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill_ms', last_refill_ms)

-- Expire idle buckets once they would be fully refilled anyway.
local ttl_ms = (max_intervals + 1) * interval_ms
redis.call('PEXPIRE', KEYS[1], ttl_ms)

return {tokens, last_refill_ms + interval_ms}
`)

// RedisStore implements Store on Redis so rate limit state is shared
// across service instances.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. Keys are namespaced with
// prefix; pass "" for the default "ratelimit".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if client == nil {
		panic("ratelimiter: redis client is required")
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (rs *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	now := time.Now()
	res, err := consumeScript.Run(ctx, rs.client, []string{rs.prefix + ":" + key},
		config.Capacity,
		config.RefillRate,
		config.RefillInterval.Milliseconds(),
		tokens,
		now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, ErrStoreUnavailable
	}

	return int(res[0]), time.UnixMilli(res[1]), nil
}

func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.prefix+":"+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
