package activation

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/merchantkit/keygate/pkg/activationkey"
)

// defaultVerifyTimeout bounds a verification call. Storefronts call the
// verify endpoint synchronously, so a slow dependency must turn into a
// fast failure instead of a hanging page load.
const defaultVerifyTimeout = 2 * time.Second

// Middleware is the chi-compatible middleware shape.
type Middleware func(http.Handler) http.Handler

// Service bundles the activation key HTTP handlers.
type Service struct {
	verifier      *activationkey.VerificationService
	issuance      *activationkey.IssuanceService
	auth          Middleware
	rateLimit     Middleware
	log           *slog.Logger
	verifyTimeout time.Duration
}

// Option configures the service.
type Option func(*Service)

// WithRateLimit applies a rate limit middleware to the public verify
// endpoints.
func WithRateLimit(mw Middleware) Option {
	return func(s *Service) { s.rateLimit = mw }
}

// WithVerifyTimeout overrides the per-request verification timeout.
func WithVerifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.verifyTimeout = d
		}
	}
}

// NewService creates the activation module. auth guards the merchant
// endpoints and must populate the merchant id in the request context.
func NewService(verifier *activationkey.VerificationService, issuance *activationkey.IssuanceService, auth Middleware, log *slog.Logger, opts ...Option) *Service {
	if verifier == nil {
		panic("activation: VerificationService is required")
	}
	if issuance == nil {
		panic("activation: IssuanceService is required")
	}
	if auth == nil {
		panic("activation: auth middleware is required")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		verifier:      verifier,
		issuance:      issuance,
		auth:          auth,
		log:           log,
		verifyTimeout: defaultVerifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the module router, mounted under /activation-key.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if s.rateLimit != nil {
			r.Use(s.rateLimit)
		}
		r.Post("/verify", s.verifyPost)
		r.Get("/verify", s.verifyGet)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/regenerate", s.regenerate)
		r.Get("/status", s.keyStatus)
		r.Get("/usage", s.usage)
	})

	return r
}
