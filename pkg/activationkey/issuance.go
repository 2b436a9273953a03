package activationkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/merchantkit/keygate/pkg/audit"
	"github.com/merchantkit/keygate/pkg/subscription"
)

// Audit trail action names for key lifecycle events.
const (
	ActionKeyIssued    = "activation_key.issued"
	ActionKeyRevoked   = "activation_key.revoked"
	ActionKeySuspended = "activation_key.suspended"
)

const maxGenerationAttempts = 5

// IssuanceService creates, rotates, and administratively transitions
// activation keys. Every lifecycle change is written to the audit trail.
type IssuanceService struct {
	keys  KeyStore
	subs  subscription.Store
	audit *audit.Logger
	log   *slog.Logger
	now   func() time.Time
}

// NewIssuanceService creates the issuance service.
func NewIssuanceService(keys KeyStore, subs subscription.Store, auditLog *audit.Logger, log *slog.Logger) *IssuanceService {
	if keys == nil {
		panic("activationkey: KeyStore is required")
	}
	if subs == nil {
		panic("activationkey: subscription.Store is required")
	}
	if auditLog == nil {
		panic("activationkey: audit.Logger is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &IssuanceService{
		keys:  keys,
		subs:  subs,
		audit: auditLog,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for tests.
func (s *IssuanceService) WithClock(now func() time.Time) *IssuanceService {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue generates a new key for the merchant, atomically superseding any
// prior key. The new key expires with the merchant's current subscription
// period so a key never outlives the subscription that authorizes it.
func (s *IssuanceService) Issue(ctx context.Context, merchantID uuid.UUID, reason string) (*ActivationKey, error) {
	sub, err := s.subs.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := &ActivationKey{
		ID:         uuid.New(),
		MerchantID: merchantID,
		Status:     StatusActive,
		ExpiresAt:  sub.EndDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var superseded *uuid.UUID
	for attempt := 0; ; attempt++ {
		if attempt >= maxGenerationAttempts {
			return nil, ErrGenerationExhausted
		}

		value, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		// Pre-check keeps the common path cheap; the store's uniqueness
		// constraint still backstops a race between check and insert.
		if exists, err := s.keys.Exists(ctx, value); err != nil {
			return nil, err
		} else if exists {
			continue
		}

		key.Key = value
		superseded, err = s.keys.Rotate(ctx, key)
		if errors.Is(err, ErrKeyCollision) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rotate activation key: %w", err)
		}
		break
	}
	key.RotatedFromID = superseded

	opts := []audit.Option{
		audit.WithResource("activation_key", key.ID.String()),
		audit.WithReason(reason),
	}
	if superseded != nil {
		opts = append(opts, audit.WithMeta("superseded_key_id", superseded.String()))
	}
	if err := s.audit.Record(ctx, merchantID, ActionKeyIssued, opts...); err != nil {
		s.log.ErrorContext(ctx, "failed to write key issuance audit entry",
			slog.String("merchant_id", merchantID.String()),
			slog.String("error", err.Error()))
	}

	return key, nil
}

// GetCurrent returns the merchant's current key.
func (s *IssuanceService) GetCurrent(ctx context.Context, merchantID uuid.UUID) (*ActivationKey, error) {
	return s.keys.GetCurrent(ctx, merchantID)
}

// Revoke permanently invalidates a key. Revocation is terminal for
// verification: the key fails with KEY_REVOKED from now on.
func (s *IssuanceService) Revoke(ctx context.Context, keyID uuid.UUID, merchantID uuid.UUID, reason string) error {
	return s.transition(ctx, keyID, merchantID, StatusRevoked, ActionKeyRevoked, reason)
}

// Suspend temporarily invalidates a key; verification fails with
// KEY_SUSPENDED until an administrator lifts the suspension.
func (s *IssuanceService) Suspend(ctx context.Context, keyID uuid.UUID, merchantID uuid.UUID, reason string) error {
	return s.transition(ctx, keyID, merchantID, StatusSuspended, ActionKeySuspended, reason)
}

func (s *IssuanceService) transition(ctx context.Context, keyID, merchantID uuid.UUID, status Status, action, reason string) error {
	if err := s.keys.UpdateStatus(ctx, keyID, status, s.now()); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, merchantID, action,
		audit.WithResource("activation_key", keyID.String()),
		audit.WithReason(reason),
	); err != nil {
		s.log.ErrorContext(ctx, "failed to write key transition audit entry",
			slog.String("key_id", keyID.String()),
			slog.String("error", err.Error()))
	}
	return nil
}
