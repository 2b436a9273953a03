package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ChargeResult describes a settled charge from the payment provider.
type ChargeResult struct {
	TransactionID string
	Amount        int64
	Currency      string
}

// Charger executes the payment step of a renewal against the billing
// provider. Implementations must be safe to call with a bounded context;
// the service never commits a renewal whose charge did not succeed.
type Charger interface {
	Charge(ctx context.Context, merchantID uuid.UUID, plan PlanType, cycle BillingCycle, method string) (*ChargeResult, error)
}

// Notifier receives a post-commit signal about a successful renewal.
// Failures are logged and never propagated; the renewal is already durable.
type Notifier interface {
	RenewalCompleted(ctx context.Context, sub *Subscription, inv *Invoice)
}

// Service coordinates subscription reads, renewals, and webhook-driven
// transitions.
type Service struct {
	store    Store
	invoices InvoiceStore
	events   EventStore
	provider BillingProvider
	charger  Charger
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	chargeTimeout time.Duration
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the service clock, used by tests for fixed time values.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier registers a post-commit renewal notifier.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithChargeTimeout bounds the payment provider call during renewal.
func WithChargeTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.chargeTimeout = d
		}
	}
}

// NewService creates the subscription service. The store, provider, and
// charger are required; invoice and event stores are required because
// webhook idempotency depends on them.
func NewService(store Store, invoices InvoiceStore, events EventStore, provider BillingProvider, charger Charger, log *slog.Logger, opts ...ServiceOption) *Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if invoices == nil {
		panic("subscription: InvoiceStore is required")
	}
	if events == nil {
		panic("subscription: EventStore is required")
	}
	if provider == nil {
		panic("subscription: BillingProvider is required")
	}
	if charger == nil {
		panic("subscription: Charger is required")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		store:         store,
		invoices:      invoices,
		events:        events,
		provider:      provider,
		charger:       charger,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
		chargeTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a merchant's subscription record.
func (s *Service) Get(ctx context.Context, merchantID uuid.UUID) (*Subscription, error) {
	return s.store.Get(ctx, merchantID)
}

// Status returns the derived status facts for a merchant's subscription.
func (s *Service) Status(ctx context.Context, merchantID uuid.UUID) (StatusInfo, error) {
	sub, err := s.store.Get(ctx, merchantID)
	if err != nil {
		return StatusInfo{}, err
	}
	return ComputeStatusInfo(sub, s.now()), nil
}

// Renew charges the merchant for one billing cycle and extends the
// subscription period. The sequence is reserve -> charge -> commit: the
// state transition, the paid invoice, and the payment row are committed in
// a single store transaction only after the charge succeeds, so a failed
// charge leaves the subscription untouched and a failed commit is never
// retried with a second charge.
func (s *Service) Renew(ctx context.Context, merchantID uuid.UUID, plan PlanType, cycle BillingCycle, method string) (*Subscription, error) {
	sub, err := s.store.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	renewed, err := Renewed(sub, plan, cycle, now)
	if err != nil {
		return nil, err
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
	defer cancel()
	charge, err := s.charger.Charge(chargeCtx, merchantID, plan, cycle, method)
	if err != nil {
		return nil, errors.Join(ErrPaymentFailed, err)
	}

	inv := &Invoice{
		ID:            uuid.New(),
		MerchantID:    merchantID,
		ProviderTxnID: charge.TransactionID,
		Amount:        charge.Amount,
		Currency:      charge.Currency,
		Status:        InvoicePaid,
		PaidAt:        &now,
		CreatedAt:     now,
	}
	pay := &Payment{
		ID:         uuid.New(),
		InvoiceID:  inv.ID,
		MerchantID: merchantID,
		Amount:     charge.Amount,
		Currency:   charge.Currency,
		Method:     method,
		Status:     PaymentSucceeded,
		CreatedAt:  now,
	}
	renewed.Amount = charge.Amount
	renewed.Currency = charge.Currency

	err = s.store.SaveRenewal(ctx, &renewed, inv, pay)
	if errors.Is(err, ErrVersionConflict) {
		// A webhook raced the renewal. Recompute from the fresh record and
		// commit once more; the charge already settled and is not repeated.
		fresh, getErr := s.store.Get(ctx, merchantID)
		if getErr != nil {
			return nil, fmt.Errorf("renewal conflict reload: %w", getErr)
		}
		recomputed, renewErr := Renewed(fresh, plan, cycle, now)
		if renewErr != nil {
			return nil, renewErr
		}
		recomputed.Amount = charge.Amount
		recomputed.Currency = charge.Currency
		renewed = recomputed
		err = s.store.SaveRenewal(ctx, &renewed, inv, pay)
	}
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.RenewalCompleted(ctx, &renewed, inv)
	}

	return &renewed, nil
}

// HandleWebhook verifies, deduplicates, and applies a provider event.
// Duplicate deliveries of the same provider event ID are acknowledged
// without reapplying the transition.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	if event.EventID != "" {
		first, err := s.events.MarkProcessed(ctx, event.EventID)
		if err != nil {
			return fmt.Errorf("webhook dedup: %w", err)
		}
		if !first {
			s.log.InfoContext(ctx, "duplicate webhook delivery skipped",
				slog.String("event_id", event.EventID),
				slog.String("event", event.ProviderEvent))
			return nil
		}
	}

	if err := s.ApplyEvent(ctx, event); err != nil {
		// Release the dedup claim so the provider's redelivery is applied
		// instead of skipped; an unreleased claim would lose the event.
		if event.EventID != "" {
			if forgetErr := s.events.Forget(ctx, event.EventID); forgetErr != nil {
				return errors.Join(err, fmt.Errorf("release webhook dedup claim: %w", forgetErr))
			}
		}
		return err
	}
	return nil
}

// ApplyEvent performs the state transition for a normalized provider event.
// A subscription miss is a no-op because webhooks can race subscription
// creation; the provider will not retry a 2xx acknowledgement.
func (s *Service) ApplyEvent(ctx context.Context, event *WebhookEvent) error {
	now := s.now()

	switch event.Kind {
	case EventSubscriptionCreated:
		return s.applyCreated(ctx, event, now)

	case EventSubscriptionUpdated:
		return s.withSubscription(ctx, event, func(sub *Subscription) {
			if status := MapProviderStatus(event.Status); status != StatusUnchanged {
				sub.Status = status
			} else if event.Status != "" {
				s.log.WarnContext(ctx, "unmapped provider status ignored",
					slog.String("provider_status", event.Status),
					slog.String("provider_sub_id", event.SubscriptionID))
			}
			applyPeriod(sub, event)
			sub.CancelAtPeriodEnd = event.ScheduledCancel
			sub.UpdatedAt = now
		})

	case EventSubscriptionCanceled:
		return s.withSubscription(ctx, event, func(sub *Subscription) {
			sub.Status = StatusCancelled
			cancelledAt := event.OccurredAt
			if cancelledAt.IsZero() {
				cancelledAt = now
			}
			sub.CancelledAt = &cancelledAt
			sub.UpdatedAt = now
		})

	case EventSubscriptionPaused, EventPaymentFailed:
		return s.withSubscription(ctx, event, func(sub *Subscription) {
			sub.Status = StatusOverdue
			sub.OverdueAt = &now
			sub.UpdatedAt = now
		})

	case EventSubscriptionResumed:
		return s.withSubscription(ctx, event, func(sub *Subscription) {
			sub.Status = StatusActive
			sub.OverdueAt = nil
			sub.UpdatedAt = now
		})

	case EventTransactionCompleted:
		return s.applyTransaction(ctx, event, now)

	default:
		s.log.DebugContext(ctx, "ignored provider event",
			slog.String("event", event.ProviderEvent))
		return nil
	}
}

func (s *Service) applyCreated(ctx context.Context, event *WebhookEvent, now time.Time) error {
	merchantID, err := uuid.Parse(event.MerchantID)
	if err != nil {
		return fmt.Errorf("subscription_created without valid merchant ID: %w", err)
	}

	sub, err := s.store.Get(ctx, merchantID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		sub = &Subscription{
			MerchantID: merchantID,
			PlanType:   PlanBasic,
			CreatedAt:  now,
		}
	} else if err != nil {
		return err
	}

	sub.Status = StatusActive
	sub.ProviderSubID = event.SubscriptionID
	sub.ProviderCustomerID = event.CustomerID
	applyPeriod(sub, event)
	if sub.BillingCycle == "" {
		sub.BillingCycle = CycleMonthly
	}
	sub.UpdatedAt = now
	return s.store.Save(ctx, sub)
}

func (s *Service) applyTransaction(ctx context.Context, event *WebhookEvent, now time.Time) error {
	sub, err := s.store.GetByProviderSubID(ctx, event.SubscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	paidAt := event.OccurredAt
	if paidAt.IsZero() {
		paidAt = now
	}
	created, err := s.invoices.CreateIfAbsent(ctx, &Invoice{
		ID:            uuid.New(),
		MerchantID:    sub.MerchantID,
		ProviderTxnID: event.TransactionID,
		Amount:        event.Amount,
		Currency:      event.Currency,
		Status:        InvoicePaid,
		PaidAt:        &paidAt,
		CreatedAt:     now,
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	sub.Amount = event.Amount
	sub.Currency = event.Currency
	sub.LastPaymentDate = &paidAt
	sub.UpdatedAt = now
	return s.store.Save(ctx, sub)
}

// withSubscription looks up the subscription by provider subscription ID,
// applies the mutation, and saves. A miss is acknowledged as a no-op.
func (s *Service) withSubscription(ctx context.Context, event *WebhookEvent, mutate func(*Subscription)) error {
	sub, err := s.store.GetByProviderSubID(ctx, event.SubscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		s.log.InfoContext(ctx, "webhook for unknown subscription skipped",
			slog.String("provider_sub_id", event.SubscriptionID),
			slog.String("event", event.ProviderEvent))
		return nil
	}
	if err != nil {
		return err
	}

	mutate(sub)
	return s.store.Save(ctx, sub)
}

func applyPeriod(sub *Subscription, event *WebhookEvent) {
	if event.PeriodStart != nil {
		sub.StartDate = *event.PeriodStart
	}
	if event.PeriodEnd != nil {
		sub.EndDate = *event.PeriodEnd
		sub.NextPaymentDate = event.PeriodEnd
	}
}
