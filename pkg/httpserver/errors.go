package httpserver

import "errors"

var (
	// ErrStart reports that the listener could not be brought up, or that
	// Run was called on a server that is already running.
	ErrStart = errors.New("httpserver: start failed")
	// ErrShutdown reports that graceful shutdown did not complete within
	// the shutdown timeout.
	ErrShutdown = errors.New("httpserver: shutdown failed")
)
