package activationkey

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an activation key.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
	StatusRevoked   Status = "revoked"
)

// ActivationKey is a merchant's bearer credential. The Key value is
// immutable once created; rotation issues a new row and revokes this one.
type ActivationKey struct {
	ID                uuid.UUID
	MerchantID        uuid.UUID
	Key               string
	Status            Status
	ExpiresAt         time.Time // never outlives the subscription period
	IsUsed            bool      // set on the first successful verification
	UsedAt            *time.Time
	VerificationCount int64
	LastVerifiedAt    *time.Time
	StoreURL          string // last caller's self-reported identity, advisory
	StoreDomain       string
	RotatedFromID     *uuid.UUID // audit link to the key this one superseded
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// VerificationAttempt is one immutable audit record of a verification call.
// Exactly one row is written per call once the key has been identified,
// regardless of outcome.
type VerificationAttempt struct {
	ID           uuid.UUID
	KeyID        uuid.UUID
	MerchantID   uuid.UUID
	IPAddress    string
	UserAgent    string
	StoreURL     string
	StoreVersion string
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}

// CallerMeta is the advisory metadata a verification caller reports about
// itself. None of it is an authorization input.
type CallerMeta struct {
	IPAddress    string
	UserAgent    string
	StoreURL     string
	StoreDomain  string
	StoreVersion string
}
