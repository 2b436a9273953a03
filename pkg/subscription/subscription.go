package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the durable billing record for a single merchant.
// MerchantID is the primary key; a merchant never has more than one row.
type Subscription struct {
	MerchantID         uuid.UUID
	PlanType           PlanType
	BillingCycle       BillingCycle
	Status             Status
	StartDate          time.Time
	EndDate            time.Time // period end / next renewal due
	LastPaymentDate    *time.Time
	NextPaymentDate    *time.Time
	CancelAtPeriodEnd  bool
	ProviderSubID      string // billing provider's subscription ID (opaque)
	ProviderCustomerID string // billing provider's customer ID (opaque)
	Amount             int64  // last charged amount, smallest currency unit
	Currency           string // ISO 4217
	CancelledAt        *time.Time
	OverdueAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Version implements optimistic concurrency: stores must reject a Save
	// whose Version does not match the persisted row.
	Version int64
}

// IsActive reports whether the stored status is active.
func (s *Subscription) IsActive() bool { return s.Status == StatusActive }

// IsCancelled reports whether the subscription has been cancelled.
func (s *Subscription) IsCancelled() bool { return s.Status == StatusCancelled }

// IsSuspended reports whether the subscription is suspended.
func (s *Subscription) IsSuspended() bool { return s.Status == StatusSuspended }

// Invoice is an append-only ledger entry created by a renewal or by a
// provider transaction_completed event. ProviderTxnID is the idempotency
// key: the same provider transaction never produces two invoices.
type Invoice struct {
	ID            uuid.UUID
	MerchantID    uuid.UUID
	ProviderTxnID string
	Amount        int64
	Currency      string
	Status        InvoiceStatus
	PaidAt        *time.Time
	CreatedAt     time.Time
}

// Payment is an append-only ledger entry recording a settled charge.
type Payment struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	MerchantID uuid.UUID
	Amount     int64
	Currency   string
	Method     string
	Status     PaymentStatus
	CreatedAt  time.Time
}
