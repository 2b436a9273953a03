package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/merchantkit/keygate/modules/activation"
	"github.com/merchantkit/keygate/modules/billing"
	"github.com/merchantkit/keygate/pkg/activationkey"
	"github.com/merchantkit/keygate/pkg/audit"
	"github.com/merchantkit/keygate/pkg/clientip"
	"github.com/merchantkit/keygate/pkg/config"
	"github.com/merchantkit/keygate/pkg/httpserver"
	"github.com/merchantkit/keygate/pkg/jwt"
	"github.com/merchantkit/keygate/pkg/logger"
	"github.com/merchantkit/keygate/pkg/pg"
	"github.com/merchantkit/keygate/pkg/ratelimiter"
	"github.com/merchantkit/keygate/pkg/redis"
	"github.com/merchantkit/keygate/pkg/requestid"
	"github.com/merchantkit/keygate/pkg/subscription"
)

type appConfig struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	HTTP          httpserver.Config
	PG            pg.Config
	Redis         redis.Config
	Paddle        subscription.PaddleConfig
	PaddleCharger subscription.PaddleChargerConfig
	Prices        subscription.CatalogConfig

	JWTSigningKey string `env:"JWT_SIGNING_KEY,required"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"keygate"`

	// RateLimitBackend selects the token bucket store: "memory" for a
	// single instance, "redis" when several instances share the budget.
	RateLimitBackend   string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	VerifyRateCapacity int           `env:"VERIFY_RATE_CAPACITY" envDefault:"60"`
	VerifyRateRefill   int           `env:"VERIFY_RATE_REFILL" envDefault:"60"`
	VerifyRateInterval time.Duration `env:"VERIFY_RATE_INTERVAL" envDefault:"1m"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "keygate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.AppEnv, "keygate"),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	keyStore := activationkey.NewPGKeyStore(pool)
	attemptStore := activationkey.NewPGAttemptStore(pool)
	subStore := subscription.NewPGStore(pool)
	invoiceStore := subscription.NewPGInvoiceStore(pool)
	eventStore := subscription.NewPGEventStore(pool)
	auditLog := audit.NewLogger(audit.NewPGStorage(pool))

	provider, err := subscription.NewPaddleProvider(cfg.Paddle)
	if err != nil {
		return fmt.Errorf("configure paddle webhooks: %w", err)
	}
	catalog, err := subscription.NewPriceCatalog(cfg.Prices)
	if err != nil {
		return fmt.Errorf("configure price catalog: %w", err)
	}
	charger, err := subscription.NewPaddleCharger(cfg.PaddleCharger, catalog)
	if err != nil {
		return fmt.Errorf("configure paddle charger: %w", err)
	}

	subs := subscription.NewService(subStore, invoiceStore, eventStore, provider, charger, log)
	issuance := activationkey.NewIssuanceService(keyStore, subStore, auditLog, log)
	verifier := activationkey.NewVerificationService(keyStore, attemptStore, subStore, log)

	jwtService, err := jwt.New([]byte(cfg.JWTSigningKey), cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("configure jwt: %w", err)
	}
	auth := jwt.Middleware(jwtService)

	readyChecks := []func(context.Context) error{pg.Healthcheck(pool)}

	var rateStore ratelimiter.Store
	switch cfg.RateLimitBackend {
	case "redis":
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		rateStore = ratelimiter.NewRedisStore(client, "keygate:ratelimit")
		readyChecks = append(readyChecks, redis.Healthcheck(client))
	case "memory":
		store := ratelimiter.NewMemoryStore()
		defer store.Close()
		rateStore = store
	default:
		return fmt.Errorf("unknown rate limit backend %q", cfg.RateLimitBackend)
	}

	verifyBucket, err := ratelimiter.NewBucket(rateStore, ratelimiter.Config{
		Capacity:       cfg.VerifyRateCapacity,
		RefillRate:     cfg.VerifyRateRefill,
		RefillInterval: cfg.VerifyRateInterval,
	})
	if err != nil {
		return fmt.Errorf("configure rate limiter: %w", err)
	}
	verifyLimit := ratelimiter.Middleware(verifyBucket,
		ratelimiter.Composite(ratelimiter.ByClientIP, ratelimiter.ByEndpoint))

	activationModule := activation.NewService(verifier, issuance, auth, log,
		activation.WithRateLimit(verifyLimit))
	billingModule := billing.NewService(subs, auth, log)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware)
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/readyz", httpserver.HealthCheckHandler(ctx, log, readyChecks...))
	r.Mount("/activation-key", activationModule.Handle())
	r.Mount("/subscription", billingModule.Handle())
	r.Mount("/webhooks", billingModule.WebhookHandler())

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("keygate listening", "addr", cfg.HTTP.Addr, "env", cfg.AppEnv)
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("keygate stopped")
		}),
	)
	return srv.Run(ctx, r)
}
