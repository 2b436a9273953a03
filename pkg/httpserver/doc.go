// Package httpserver wraps net/http with graceful shutdown, configurable
// timeouts, lifecycle hooks, and probe handlers.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal
// arrives, then drains in-flight requests within the shutdown deadline.
// Listen errors are wrapped with ErrStart and shutdown errors with
// ErrShutdown so callers can tell the phases apart with errors.Is.
//
//	srv := httpserver.New(
//		httpserver.WithAddr(":8080"),
//		httpserver.WithShutdownTimeout(10*time.Second),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package httpserver
