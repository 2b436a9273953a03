// Package redis connects the service to Redis, which backs the shared rate
// limit counters. Connect retries until the server is ready, and
// Healthcheck exposes the connection state to readiness probes.
//
//	var cfg redis.Config
//	if err := env.Parse(&cfg); err != nil {
//	    panic(err)
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    panic(err)
//	}
//	defer client.Close()
package redis
