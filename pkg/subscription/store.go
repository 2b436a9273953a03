package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store defines subscription persistence. Each merchant has exactly one
// subscription, so MerchantID serves as the primary key.
type Store interface {
	// Get retrieves a subscription by merchant ID.
	// Returns ErrSubscriptionNotFound if no subscription exists.
	Get(ctx context.Context, merchantID uuid.UUID) (*Subscription, error)

	// GetByProviderSubID retrieves a subscription by the billing provider's
	// opaque subscription ID. Returns ErrSubscriptionNotFound on a miss.
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)

	// Save creates or updates a subscription. When updating, the store must
	// compare sub.Version against the persisted row and return
	// ErrVersionConflict on a mismatch; on success the persisted version is
	// incremented.
	Save(ctx context.Context, sub *Subscription) error

	// SaveRenewal atomically commits the renewed subscription together with
	// its paid invoice and payment ledger rows. Either all three are
	// persisted or none; the version check applies as in Save.
	SaveRenewal(ctx context.Context, sub *Subscription, inv *Invoice, pay *Payment) error
}

// InvoiceStore is the append-only invoice ledger.
type InvoiceStore interface {
	// CreateIfAbsent inserts the invoice unless one already exists for the
	// same provider transaction ID. Returns true when a row was inserted.
	CreateIfAbsent(ctx context.Context, inv *Invoice) (bool, error)

	// ListByMerchant returns invoices for a merchant, newest first.
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]Invoice, error)
}

// EventStore tracks processed provider event IDs so at-least-once webhook
// delivery never applies the same event twice.
type EventStore interface {
	// MarkProcessed records the event ID and reports whether this was the
	// first time it was seen.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	// Forget removes a recorded event ID so a provider redelivery can be
	// applied after a failed attempt.
	Forget(ctx context.Context, eventID string) error
}
