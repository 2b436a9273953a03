// Package pg bootstraps the PostgreSQL layer: connection pooling with
// startup retries, goose schema migrations, a health check closure, and
// error classification helpers shared by all stores.
//
// Config is populated from environment variables via github.com/caarlos0/env.
// Connect opens the pgx pool, Migrate brings the schema up to date before
// the service starts serving traffic, and Healthcheck yields a
// func(context.Context) error suitable for readiness endpoints.
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//	    panic(err)
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    panic(err)
//	}
//
// IsNotFoundError and IsDuplicateKeyError let stores translate driver
// errors into their own sentinel errors without importing pgconn.
package pg
