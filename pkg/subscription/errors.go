package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidPlanType      = errors.New("invalid plan type")
	ErrInvalidBillingCycle  = errors.New("invalid billing cycle")

	// ErrVersionConflict is returned by stores when a Save carries a stale
	// Version, meaning another writer committed first.
	ErrVersionConflict = errors.New("subscription was modified concurrently")

	ErrPaymentFailed        = errors.New("payment failed")
	ErrSignatureInvalid     = errors.New("webhook signature verification failed")
	ErrMalformedWebhook     = errors.New("malformed webhook payload")
	ErrMissingWebhookSecret = errors.New("billing provider webhook secret is required")
)
