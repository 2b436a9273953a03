package httpserver

import (
	"log/slog"
	"time"
)

// Option adjusts server settings at construction time. Options validate
// their arguments eagerly and panic on programmer error, the same way nil
// dependencies are treated elsewhere.
type Option func(*settings)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty listen address")
	}
	return func(c *settings) { c.addr = addr }
}

// WithReadTimeout bounds how long reading a full request may take.
func WithReadTimeout(d time.Duration) Option {
	return withTimeout(d, func(c *settings) { c.readTimeout = d })
}

// WithWriteTimeout bounds how long writing a response may take.
func WithWriteTimeout(d time.Duration) Option {
	return withTimeout(d, func(c *settings) { c.writeTimeout = d })
}

// WithIdleTimeout bounds how long a keep-alive connection may sit idle.
func WithIdleTimeout(d time.Duration) Option {
	return withTimeout(d, func(c *settings) { c.idleTimeout = d })
}

// WithShutdownTimeout bounds how long graceful shutdown may take before
// in-flight requests are abandoned.
func WithShutdownTimeout(d time.Duration) Option {
	return withTimeout(d, func(c *settings) { c.shutdownTimeout = d })
}

func withTimeout(d time.Duration, apply Option) Option {
	if d <= 0 {
		panic("httpserver: timeout must be positive")
	}
	return apply
}

// WithLogger supplies the logger used by start/stop hooks. Without it the
// server stays silent.
func WithLogger(l *slog.Logger) Option {
	return func(c *settings) { c.logger = l }
}

// WithStartHook registers a callback invoked once the listener is up.
func WithStartHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver: nil start hook")
	}
	return func(c *settings) { c.startHooks = append(c.startHooks, h) }
}

// WithStopHook registers a callback invoked after shutdown completes.
func WithStopHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver: nil stop hook")
	}
	return func(c *settings) { c.stopHooks = append(c.stopHooks, h) }
}
