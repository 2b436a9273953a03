package ratelimiter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/keygate/pkg/ratelimiter"
)

func newBucket(t *testing.T, cfg ratelimiter.Config) (*ratelimiter.Bucket, *ratelimiter.MemoryStore) {
	t.Helper()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)
	tb, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	return tb, store
}

func TestNewBucket_ConfigValidation(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)

	tests := []struct {
		name string
		cfg  ratelimiter.Config
	}{
		{"zero capacity", ratelimiter.Config{Capacity: 0, RefillRate: 1, RefillInterval: time.Second}},
		{"zero refill rate", ratelimiter.Config{Capacity: 10, RefillRate: 0, RefillInterval: time.Second}},
		{"zero interval", ratelimiter.Config{Capacity: 10, RefillRate: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ratelimiter.NewBucket(store, tt.cfg)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}
}

func TestBucket_Allow(t *testing.T) {
	t.Parallel()

	t.Run("burst up to capacity then denied", func(t *testing.T) {
		t.Parallel()
		tb, _ := newBucket(t, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Hour})

		for i := 0; i < 3; i++ {
			res, err := tb.Allow(context.Background(), "client")
			require.NoError(t, err)
			assert.True(t, res.Allowed(), "request %d should be allowed", i)
		}

		res, err := tb.Allow(context.Background(), "client")
		require.NoError(t, err)
		assert.False(t, res.Allowed())
		assert.Positive(t, res.RetryAfter())
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()
		tb, _ := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})

		res, err := tb.Allow(context.Background(), "a")
		require.NoError(t, err)
		assert.True(t, res.Allowed())

		res, err = tb.Allow(context.Background(), "a")
		require.NoError(t, err)
		assert.False(t, res.Allowed())

		res, err = tb.Allow(context.Background(), "b")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("refill after interval", func(t *testing.T) {
		t.Parallel()
		tb, _ := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: 20 * time.Millisecond})

		res, err := tb.Allow(context.Background(), "client")
		require.NoError(t, err)
		require.True(t, res.Allowed())

		res, err = tb.Allow(context.Background(), "client")
		require.NoError(t, err)
		require.False(t, res.Allowed())

		time.Sleep(30 * time.Millisecond)

		res, err = tb.Allow(context.Background(), "client")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})

	t.Run("invalid token count", func(t *testing.T) {
		t.Parallel()
		tb, _ := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})

		_, err := tb.AllowN(context.Background(), "client", 0)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	})

	t.Run("reset restores the budget", func(t *testing.T) {
		t.Parallel()
		tb, _ := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})

		_, err := tb.Allow(context.Background(), "client")
		require.NoError(t, err)
		require.NoError(t, tb.Reset(context.Background(), "client"))

		res, err := tb.Allow(context.Background(), "client")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	})
}

func TestMemoryStore_ConcurrentConsumption(t *testing.T) {
	t.Parallel()

	tb, _ := newBucket(t, ratelimiter.Config{Capacity: 100, RefillRate: 1, RefillInterval: time.Hour})

	const (
		goroutines = 10
		perKey     = 20
	)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed = make(map[string]int)
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			key := fmt.Sprintf("client-%d", g%5)
			for i := 0; i < perKey; i++ {
				res, err := tb.Allow(context.Background(), key)
				assert.NoError(t, err)
				if res.Allowed() {
					mu.Lock()
					allowed[key]++
					mu.Unlock()
				}
			}
		}(g)
	}
	wg.Wait()

	// 5 distinct keys, 40 requests each against a capacity of 100.
	for key, count := range allowed {
		assert.Equal(t, 40, count, "key %s", key)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	tb, _ := newBucket(t, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Hour})

	handler := ratelimiter.Middleware(tb, ratelimiter.Composite(ratelimiter.ByClientIP, ratelimiter.ByEndpoint))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	do := func(remoteAddr, path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, path, nil)
		r.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	w := do("192.0.2.10:1000", "/verify")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	do("192.0.2.10:1000", "/verify")
	w = do("192.0.2.10:1000", "/verify")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "RATE_LIMITED", body["code"])

	// Different endpoint and different client each have their own budget.
	assert.Equal(t, http.StatusOK, do("192.0.2.10:1000", "/status").Code)
	assert.Equal(t, http.StatusOK, do("198.51.100.9:2000", "/verify").Code)
}
