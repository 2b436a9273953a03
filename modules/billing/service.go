package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/merchantkit/keygate/pkg/subscription"
)

// Middleware is the chi-compatible middleware shape.
type Middleware func(http.Handler) http.Handler

// Service bundles the subscription HTTP handlers.
type Service struct {
	subs *subscription.Service
	auth Middleware
	log  *slog.Logger
}

// NewService creates the billing module. auth guards the merchant
// endpoints and must populate the merchant id in the request context.
func NewService(subs *subscription.Service, auth Middleware, log *slog.Logger) *Service {
	if subs == nil {
		panic("billing: subscription.Service is required")
	}
	if auth == nil {
		panic("billing: auth middleware is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		subs: subs,
		auth: auth,
		log:  log,
	}
}

// Handle returns the subscription router, mounted under /subscription.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(s.auth)
	r.Get("/check-status", s.checkStatus)
	r.Post("/renew", s.renew)
	return r
}

// WebhookHandler returns the webhook ingress router, mounted under
// /webhooks. It is unauthenticated; the provider signature check inside
// HandleWebhook is the trust boundary.
func (s *Service) WebhookHandler() http.Handler {
	r := chi.NewRouter()
	r.Post("/paddle", s.paddleWebhook)
	return r
}
