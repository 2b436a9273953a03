package redis

import "errors"

var (
	// ErrInvalidConnectionURL reports a REDIS_URL that go-redis could not
	// parse.
	ErrInvalidConnectionURL = errors.New("redis: invalid connection URL")
	// ErrNotReady reports that the server did not answer a ping within the
	// retry budget.
	ErrNotReady = errors.New("redis: server not ready")
	// ErrHealthcheckFailed reports a failed readiness ping on an
	// established client.
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
