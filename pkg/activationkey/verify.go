package activationkey

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/merchantkit/keygate/pkg/subscription"
)

// Code identifies the outcome of a verification call. External storefronts
// build automated gating logic on these values, so "key is wrong" and
// "system is down" must never collapse into one code.
type Code string

const (
	CodeKeyRequired          Code = "KEY_REQUIRED"
	CodeKeyNotFound          Code = "KEY_NOT_FOUND"
	CodeKeyRevoked           Code = "KEY_REVOKED"
	CodeKeySuspended         Code = "KEY_SUSPENDED"
	CodeKeyExpired           Code = "KEY_EXPIRED"
	CodeSubscriptionInactive Code = "SUBSCRIPTION_INACTIVE"
	CodeInternalError        Code = "INTERNAL_ERROR"
)

// message returns the caller-facing description for a failure code.
func (c Code) message() string {
	switch c {
	case CodeKeyRequired:
		return "activation key is required"
	case CodeKeyNotFound:
		return "activation key not found"
	case CodeKeyRevoked:
		return "activation key has been revoked"
	case CodeKeySuspended:
		return "activation key is suspended"
	case CodeKeyExpired:
		return "activation key has expired"
	case CodeSubscriptionInactive:
		return "subscription is not active"
	case CodeInternalError:
		return "verification could not be completed"
	default:
		return string(c)
	}
}

// Summary is the minimal self-configuration payload returned on a
// successful verification. It carries no secrets.
type Summary struct {
	MerchantID         uuid.UUID
	PlanType           subscription.PlanType
	BillingCycle       subscription.BillingCycle
	SubscriptionStatus subscription.Status
	SubscriptionEnd    time.Time
	InGracePeriod      bool
	StoreURL           string
	StoreDomain        string
}

// VerificationResult is the outcome of one Verify call.
type VerificationResult struct {
	Valid   bool
	Code    Code   // set on failure
	Message string // caller-facing description of the failure
	// SubscriptionStatus is set when the denial was caused by the
	// subscription rather than the key itself.
	SubscriptionStatus subscription.Status
	Summary            *Summary
	VerifiedAt         time.Time
}

// VerificationService decides key validity by cross-referencing the key
// store and live subscription state, and writes the audit trail.
type VerificationService struct {
	keys     KeyStore
	attempts AttemptStore
	subs     subscription.Store
	log      *slog.Logger
	now      func() time.Time
}

// NewVerificationService creates the verification service.
func NewVerificationService(keys KeyStore, attempts AttemptStore, subs subscription.Store, log *slog.Logger) *VerificationService {
	if keys == nil {
		panic("activationkey: KeyStore is required")
	}
	if attempts == nil {
		panic("activationkey: AttemptStore is required")
	}
	if subs == nil {
		panic("activationkey: subscription.Store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &VerificationService{
		keys:     keys,
		attempts: attempts,
		subs:     subs,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for tests.
func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Verify runs the key verification protocol. Once a key row has been
// identified, exactly one VerificationAttempt is appended whatever the
// outcome; the empty-key and unknown-key rejections precede that point and
// write nothing because there is no key to attribute the attempt to.
func (s *VerificationService) Verify(ctx context.Context, keyValue string, meta CallerMeta) (*VerificationResult, error) {
	now := s.now()

	if keyValue == "" {
		return failure(CodeKeyRequired, now), nil
	}

	key, err := s.keys.GetByValue(ctx, keyValue)
	if errors.Is(err, ErrKeyNotFound) {
		return failure(CodeKeyNotFound, now), nil
	}
	if err != nil {
		s.log.ErrorContext(ctx, "activation key lookup failed",
			slog.String("error", err.Error()))
		return failure(CodeInternalError, now), nil
	}

	switch key.Status {
	case StatusRevoked:
		return s.deny(ctx, key, meta, CodeKeyRevoked, now), nil
	case StatusSuspended:
		return s.deny(ctx, key, meta, CodeKeySuspended, now), nil
	}

	if key.ExpiresAt.Before(now) {
		// Advisory status flip; correctness does not depend on it because
		// the expiry check runs on every call.
		if key.Status != StatusExpired {
			if err := s.keys.UpdateStatus(ctx, key.ID, StatusExpired, now); err != nil {
				s.log.WarnContext(ctx, "failed to mark key expired",
					slog.String("key_id", key.ID.String()),
					slog.String("error", err.Error()))
			}
		}
		return s.deny(ctx, key, meta, CodeKeyExpired, now), nil
	}

	sub, err := s.subs.Get(ctx, key.MerchantID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return s.deny(ctx, key, meta, CodeSubscriptionInactive, now), nil
		}
		s.log.ErrorContext(ctx, "subscription lookup failed during verification",
			slog.String("key_id", key.ID.String()),
			slog.String("merchant_id", key.MerchantID.String()),
			slog.String("error", err.Error()))
		s.logAttempt(ctx, key, meta, false, string(CodeInternalError), now)
		return failure(CodeInternalError, now), nil
	}

	info := subscription.ComputeStatusInfo(sub, now)
	if !info.Entitled() {
		res := s.deny(ctx, key, meta, CodeSubscriptionInactive, now)
		res.SubscriptionStatus = sub.Status
		return res, nil
	}

	if err := s.keys.RecordVerification(ctx, key.ID, meta, now); err != nil {
		s.log.ErrorContext(ctx, "failed to record verification side effects",
			slog.String("key_id", key.ID.String()),
			slog.String("error", err.Error()))
		s.logAttempt(ctx, key, meta, false, string(CodeInternalError), now)
		return failure(CodeInternalError, now), nil
	}
	s.logAttempt(ctx, key, meta, true, "", now)

	storeURL := meta.StoreURL
	if storeURL == "" {
		storeURL = key.StoreURL
	}
	storeDomain := meta.StoreDomain
	if storeDomain == "" {
		storeDomain = key.StoreDomain
	}

	return &VerificationResult{
		Valid:      true,
		VerifiedAt: now,
		Summary: &Summary{
			MerchantID:         key.MerchantID,
			PlanType:           sub.PlanType,
			BillingCycle:       sub.BillingCycle,
			SubscriptionStatus: sub.Status,
			SubscriptionEnd:    sub.EndDate,
			InGracePeriod:      info.IsInGracePeriod,
			StoreURL:           storeURL,
			StoreDomain:        storeDomain,
		},
	}, nil
}

// Usage returns the most recent verification attempts for the merchant's
// current key.
func (s *VerificationService) Usage(ctx context.Context, merchantID uuid.UUID, limit int) ([]VerificationAttempt, error) {
	key, err := s.keys.GetCurrent(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	return s.attempts.ListByKey(ctx, key.ID, limit)
}

func (s *VerificationService) deny(ctx context.Context, key *ActivationKey, meta CallerMeta, code Code, now time.Time) *VerificationResult {
	s.logAttempt(ctx, key, meta, false, code.message(), now)
	return failure(code, now)
}

// logAttempt appends the audit row. A storage failure here must not mask
// the verification outcome; it is logged and the caller's result stands.
func (s *VerificationService) logAttempt(ctx context.Context, key *ActivationKey, meta CallerMeta, success bool, errMessage string, now time.Time) {
	attempt := &VerificationAttempt{
		ID:           uuid.New(),
		KeyID:        key.ID,
		MerchantID:   key.MerchantID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		StoreURL:     meta.StoreURL,
		StoreVersion: meta.StoreVersion,
		Success:      success,
		ErrorMessage: errMessage,
		CreatedAt:    now,
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		s.log.ErrorContext(ctx, "failed to append verification attempt",
			slog.String("key_id", key.ID.String()),
			slog.String("error", err.Error()))
	}
}

func failure(code Code, now time.Time) *VerificationResult {
	return &VerificationResult{
		Valid:      false,
		Code:       code,
		Message:    code.message(),
		VerifiedAt: now,
	}
}
