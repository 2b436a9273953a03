package activationkey

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// KeyStore defines activation key persistence.
type KeyStore interface {
	// GetByValue retrieves a key by its exact value.
	// Returns ErrKeyNotFound on a miss.
	GetByValue(ctx context.Context, value string) (*ActivationKey, error)

	// GetCurrent retrieves the merchant's current key, which is the single
	// non-revoked row. Returns ErrKeyNotFound when the merchant has none.
	GetCurrent(ctx context.Context, merchantID uuid.UUID) (*ActivationKey, error)

	// Exists reports whether any key row, current or superseded, carries
	// the value. Used for the global-uniqueness collision check.
	Exists(ctx context.Context, value string) (bool, error)

	// Rotate atomically revokes the merchant's current key, if any, and
	// inserts newKey as the replacement. Returns the ID of the superseded
	// key, or nil when this is the first issuance. Returns ErrKeyCollision
	// if newKey.Key already exists.
	Rotate(ctx context.Context, newKey *ActivationKey) (superseded *uuid.UUID, err error)

	// UpdateStatus moves a key to the given status.
	UpdateStatus(ctx context.Context, keyID uuid.UUID, status Status, now time.Time) error

	// RecordVerification applies the success side effects in one atomic
	// update: increments the verification counter without a read-modify-
	// write race, sets the first-use marker if unset, and stores the
	// caller's reported identity last-write-wins.
	RecordVerification(ctx context.Context, keyID uuid.UUID, meta CallerMeta, now time.Time) error
}

// AttemptStore is the append-only verification audit trail.
type AttemptStore interface {
	// Append writes one attempt row. Rows are never mutated.
	Append(ctx context.Context, attempt *VerificationAttempt) error

	// ListByKey returns the most recent attempts for a key, newest first.
	ListByKey(ctx context.Context, keyID uuid.UUID, limit int) ([]VerificationAttempt, error)
}
