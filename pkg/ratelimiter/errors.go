package ratelimiter

import "errors"

var (
	// ErrInvalidConfig rejects a bucket configuration with a non-positive
	// capacity, refill rate, or refill interval.
	ErrInvalidConfig = errors.New("ratelimiter: invalid config")

	// ErrInvalidTokenCount rejects an AllowN call asking for zero or
	// negative tokens.
	ErrInvalidTokenCount = errors.New("ratelimiter: invalid token count")

	// ErrStoreUnavailable wraps backend failures so the middleware can fail
	// open on infrastructure trouble without inspecting driver errors.
	ErrStoreUnavailable = errors.New("ratelimiter: store unavailable")
)
