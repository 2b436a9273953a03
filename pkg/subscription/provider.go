package subscription

import (
	"context"
	"time"
)

// BillingProvider abstracts the payment provider's webhook surface.
// Implementations must verify the event signature before returning any data;
// a verification failure is a hard error and the payload must be discarded.
type BillingProvider interface {
	// ParseWebhook validates the signature and normalizes the payload.
	// Returns an error wrapping ErrSignatureInvalid when verification fails.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// EventKind is the normalized billing event type.
type EventKind string

const (
	EventSubscriptionCreated  EventKind = "subscription_created"
	EventSubscriptionUpdated  EventKind = "subscription_updated"
	EventSubscriptionCanceled EventKind = "subscription_canceled"
	EventSubscriptionPaused   EventKind = "subscription_paused"
	EventSubscriptionResumed  EventKind = "subscription_resumed"
	EventPaymentFailed        EventKind = "payment_failed"
	EventTransactionCompleted EventKind = "transaction_completed"

	// EventIgnored covers provider events this system has no transition for.
	EventIgnored EventKind = "ignored"
)

// WebhookEvent is a provider event normalized to internal vocabulary.
type WebhookEvent struct {
	EventID         string // provider event ID, idempotency key
	Kind            EventKind
	ProviderEvent   string // original provider event name
	SubscriptionID  string // provider's subscription ID
	CustomerID      string // provider's customer ID
	MerchantID      string // merchant ID carried in event custom data
	Status          string // provider status vocabulary, raw
	ScheduledCancel bool   // provider scheduled a cancellation at period end
	PeriodStart     *time.Time
	PeriodEnd       *time.Time
	TransactionID   string // set for transaction events
	Amount          int64
	Currency        string
	OccurredAt      time.Time
}

// MapProviderStatus translates provider status vocabulary to the internal
// Status. Unrecognized values map to StatusUnchanged so an unknown status
// can never silently activate a merchant; callers keep the stored status
// and should log the value for investigation.
func MapProviderStatus(providerStatus string) Status {
	switch providerStatus {
	case "active", "trialing":
		return StatusActive
	case "canceled", "cancelled":
		return StatusCancelled
	case "past_due", "paused":
		return StatusOverdue
	default:
		return StatusUnchanged
	}
}
