package subscription_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/keygate/pkg/subscription"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*subscription.WebhookEvent, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.WebhookEvent), args.Error(1)
}

type mockCharger struct {
	mock.Mock
}

func (m *mockCharger) Charge(ctx context.Context, merchantID uuid.UUID, plan subscription.PlanType, cycle subscription.BillingCycle, method string) (*subscription.ChargeResult, error) {
	args := m.Called(ctx, merchantID, plan, cycle, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.ChargeResult), args.Error(1)
}

// flakyStore fails the first saveFailures writes, then delegates.
type flakyStore struct {
	subscription.Store
	saveFailures int
}

func (s *flakyStore) Save(ctx context.Context, sub *subscription.Subscription) error {
	if s.saveFailures > 0 {
		s.saveFailures--
		return errors.New("storage offline")
	}
	return s.Store.Save(ctx, sub)
}

type serviceFixture struct {
	store    *subscription.MemoryStore
	invoices *subscription.MemoryInvoiceStore
	events   *subscription.MemoryEventStore
	provider *mockProvider
	charger  *mockCharger
	svc      *subscription.Service
	now      time.Time
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		store:    subscription.NewMemoryStore(),
		invoices: subscription.NewMemoryInvoiceStore(),
		events:   subscription.NewMemoryEventStore(),
		provider: &mockProvider{},
		charger:  &mockCharger{},
		now:      time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc = subscription.NewService(
		f.store, f.invoices, f.events, f.provider, f.charger,
		slog.New(slog.DiscardHandler),
		subscription.WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *serviceFixture) seed(t *testing.T, sub *subscription.Subscription) *subscription.Subscription {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), sub))
	return sub
}

func activeSub(endDate time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		MerchantID:    uuid.New(),
		PlanType:      subscription.PlanPremium,
		BillingCycle:  subscription.CycleMonthly,
		Status:        subscription.StatusActive,
		StartDate:     endDate.AddDate(0, -1, 0),
		EndDate:       endDate,
		ProviderSubID: "sub_" + uuid.NewString(),
	}
}

func TestService_Renew(t *testing.T) {
	t.Parallel()

	t.Run("commits subscription, invoice, and payment together", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 10)))

		f.charger.On("Charge", mock.Anything, sub.MerchantID, subscription.PlanPremium, subscription.CycleMonthly, "card").
			Return(&subscription.ChargeResult{TransactionID: "txn_1", Amount: 7900, Currency: "USD"}, nil)

		renewed, err := f.svc.Renew(context.Background(), sub.MerchantID, subscription.PlanPremium, subscription.CycleMonthly, "card")
		require.NoError(t, err)

		assert.Equal(t, sub.EndDate.AddDate(0, 1, 0), renewed.EndDate)
		assert.Equal(t, int64(7900), renewed.Amount)

		stored, err := f.store.Get(context.Background(), sub.MerchantID)
		require.NoError(t, err)
		assert.Equal(t, renewed.EndDate, stored.EndDate)
	})

	t.Run("failed charge leaves subscription untouched", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 10)))
		before := *sub

		f.charger.On("Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("card declined"))

		_, err := f.svc.Renew(context.Background(), sub.MerchantID, subscription.PlanPremium, subscription.CycleMonthly, "card")
		require.ErrorIs(t, err, subscription.ErrPaymentFailed)

		stored, err := f.store.Get(context.Background(), sub.MerchantID)
		require.NoError(t, err)
		assert.Equal(t, before.EndDate, stored.EndDate)
		assert.Equal(t, before.Status, stored.Status)
	})

	t.Run("rejects unknown plan before charging", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 10)))

		_, err := f.svc.Renew(context.Background(), sub.MerchantID, "platinum", subscription.CycleMonthly, "card")
		require.ErrorIs(t, err, subscription.ErrInvalidPlanType)
		f.charger.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.Renew(context.Background(), uuid.New(), subscription.PlanBasic, subscription.CycleMonthly, "card")
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})
}

func TestService_HandleWebhook(t *testing.T) {
	t.Parallel()

	t.Run("signature failure stops processing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.provider.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, subscription.ErrSignatureInvalid)

		err := f.svc.HandleWebhook(context.Background(), []byte(`{}`), "bad-sig")
		assert.ErrorIs(t, err, subscription.ErrSignatureInvalid)
	})

	t.Run("duplicate event id is applied once", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 10)))

		event := &subscription.WebhookEvent{
			EventID:        "evt_1",
			Kind:           subscription.EventSubscriptionCanceled,
			ProviderEvent:  "subscription.canceled",
			SubscriptionID: sub.ProviderSubID,
			OccurredAt:     f.now,
		}
		f.provider.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(event, nil)

		require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"))
		require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"))

		stored, err := f.store.Get(context.Background(), sub.MerchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, stored.Status)
		require.NotNil(t, stored.CancelledAt)
	})

	t.Run("failed apply is reapplied on redelivery", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 10)))

		flaky := &flakyStore{Store: f.store, saveFailures: 1}
		svc := subscription.NewService(
			flaky, subscription.NewMemoryInvoiceStore(), subscription.NewMemoryEventStore(),
			f.provider, f.charger, slog.New(slog.DiscardHandler),
			subscription.WithClock(func() time.Time { return f.now }),
		)

		event := &subscription.WebhookEvent{
			EventID:        "evt_retry",
			Kind:           subscription.EventSubscriptionCanceled,
			ProviderEvent:  "subscription.canceled",
			SubscriptionID: sub.ProviderSubID,
			OccurredAt:     f.now,
		}
		f.provider.On("ParseWebhook", mock.Anything, mock.Anything, mock.Anything).Return(event, nil)

		require.Error(t, svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"))
		require.NoError(t, svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"))

		stored, err := f.store.Get(context.Background(), sub.MerchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, stored.Status)
	})

	t.Run("unknown subscription is a no-op", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		err := f.svc.ApplyEvent(context.Background(), &subscription.WebhookEvent{
			Kind:           subscription.EventSubscriptionPaused,
			SubscriptionID: "sub_ghost",
		})
		assert.NoError(t, err)
	})
}

func TestService_ApplyEvent_Transitions(t *testing.T) {
	t.Parallel()

	t.Run("created upserts an active subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		merchantID := uuid.New()
		periodEnd := f.now.AddDate(0, 1, 0)

		err := f.svc.ApplyEvent(context.Background(), &subscription.WebhookEvent{
			Kind:           subscription.EventSubscriptionCreated,
			SubscriptionID: "sub_new",
			CustomerID:     "ctm_1",
			MerchantID:     merchantID.String(),
			PeriodStart:    &f.now,
			PeriodEnd:      &periodEnd,
		})
		require.NoError(t, err)

		stored, err := f.store.Get(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, stored.Status)
		assert.Equal(t, "sub_new", stored.ProviderSubID)
		assert.Equal(t, periodEnd, stored.EndDate)
	})

	t.Run("updated maps provider status and period", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 10)))
		newEnd := f.now.AddDate(0, 2, 0)

		err := f.svc.ApplyEvent(context.Background(), &subscription.WebhookEvent{
			Kind:            subscription.EventSubscriptionUpdated,
			SubscriptionID:  sub.ProviderSubID,
			Status:          "past_due",
			PeriodEnd:       &newEnd,
			ScheduledCancel: true,
		})
		require.NoError(t, err)

		stored, err := f.store.Get(context.Background(), sub.MerchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusOverdue, stored.Status)
		assert.Equal(t, newEnd, stored.EndDate)
		assert.True(t, stored.CancelAtPeriodEnd)
	})

	t.Run("unmapped provider status keeps stored status", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 10)))

		err := f.svc.ApplyEvent(context.Background(), &subscription.WebhookEvent{
			Kind:           subscription.EventSubscriptionUpdated,
			SubscriptionID: sub.ProviderSubID,
			Status:         "mysterious_new_state",
		})
		require.NoError(t, err)

		stored, err := f.store.Get(context.Background(), sub.MerchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, stored.Status)
	})

	t.Run("paused and payment_failed mark overdue, resumed restores", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 10)))

		require.NoError(t, f.svc.ApplyEvent(context.Background(), &subscription.WebhookEvent{
			Kind:           subscription.EventPaymentFailed,
			SubscriptionID: sub.ProviderSubID,
		}))
		stored, err := f.store.Get(context.Background(), sub.MerchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusOverdue, stored.Status)
		require.NotNil(t, stored.OverdueAt)

		require.NoError(t, f.svc.ApplyEvent(context.Background(), &subscription.WebhookEvent{
			Kind:           subscription.EventSubscriptionResumed,
			SubscriptionID: sub.ProviderSubID,
		}))
		stored, err = f.store.Get(context.Background(), sub.MerchantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, stored.Status)
		assert.Nil(t, stored.OverdueAt)
	})

	t.Run("transaction completed creates exactly one invoice per txn id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 10)))

		event := &subscription.WebhookEvent{
			Kind:           subscription.EventTransactionCompleted,
			SubscriptionID: sub.ProviderSubID,
			TransactionID:  "txn_42",
			Amount:         7900,
			Currency:       "USD",
			OccurredAt:     f.now,
		}
		require.NoError(t, f.svc.ApplyEvent(context.Background(), event))
		require.NoError(t, f.svc.ApplyEvent(context.Background(), event))

		invoices, err := f.invoices.ListByMerchant(context.Background(), sub.MerchantID, 10)
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, "txn_42", invoices[0].ProviderTxnID)

		stored, err := f.store.Get(context.Background(), sub.MerchantID)
		require.NoError(t, err)
		assert.Equal(t, int64(7900), stored.Amount)
		require.NotNil(t, stored.LastPaymentDate)
	})
}

func TestService_Status(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sub := f.seed(t, activeSub(f.now.AddDate(0, 0, 5)))

	info, err := f.svc.Status(context.Background(), sub.MerchantID)
	require.NoError(t, err)
	assert.True(t, info.NeedsRenewal)
	assert.Equal(t, 5, info.DaysRemaining)

	_, err = f.svc.Status(context.Background(), uuid.New())
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}
