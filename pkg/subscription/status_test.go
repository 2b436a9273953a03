package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/keygate/pkg/subscription"
)

func testSub(status subscription.Status, endDate time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		MerchantID:   uuid.New(),
		PlanType:     subscription.PlanPremium,
		BillingCycle: subscription.CycleMonthly,
		Status:       status,
		StartDate:    endDate.AddDate(0, -1, 0),
		EndDate:      endDate,
	}
}

func TestComputeStatusInfo_GracePeriodBoundaries(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("exactly at period end is not grace", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusExpired, now), now)
		assert.False(t, info.IsInGracePeriod)
		assert.False(t, info.IsOverdue)
		assert.Equal(t, 0, info.DaysRemaining)
	})

	t.Run("one second past period end is grace", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusExpired, now.Add(-time.Second)), now)
		assert.True(t, info.IsInGracePeriod)
		assert.False(t, info.IsOverdue)
		assert.Equal(t, 1, info.DaysInGracePeriod)
	})

	t.Run("exactly seven days past is still grace", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusExpired, now.AddDate(0, 0, -7)), now)
		assert.True(t, info.IsInGracePeriod)
		assert.False(t, info.IsOverdue)
		assert.Equal(t, 7, info.DaysInGracePeriod)
	})

	t.Run("seven days and one second past is overdue", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusExpired, now.AddDate(0, 0, -7).Add(-time.Second)), now)
		assert.False(t, info.IsInGracePeriod)
		assert.True(t, info.IsOverdue)
	})

	t.Run("grace derives from end date even when status is stale active", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusActive, now.AddDate(0, 0, -3)), now)
		assert.True(t, info.IsInGracePeriod)
		assert.True(t, info.Entitled())

		info = subscription.ComputeStatusInfo(testSub(subscription.StatusActive, now.AddDate(0, 0, -10)), now)
		assert.True(t, info.IsOverdue)
		assert.False(t, info.Entitled())
	})
}

func TestComputeStatusInfo_RenewalWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		endDate       time.Time
		needsRenewal  bool
		daysRemaining int
	}{
		{"ten days out", now.AddDate(0, 0, 10), false, 10},
		{"seven days out", now.AddDate(0, 0, 7), true, 7},
		{"five days out", now.AddDate(0, 0, 5), true, 5},
		{"expires today", now, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := subscription.ComputeStatusInfo(testSub(subscription.StatusActive, tt.endDate), now)
			assert.Equal(t, tt.needsRenewal, info.NeedsRenewal)
			assert.Equal(t, tt.daysRemaining, info.DaysRemaining)
		})
	}
}

func TestComputeStatusInfo_ShortCircuitStatuses(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("suspended never grants entitlement", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusSuspended, now.AddDate(0, 0, 10)), now)
		assert.True(t, info.IsSuspended)
		assert.False(t, info.Entitled())
		assert.Contains(t, info.Message, "suspended")
	})

	t.Run("cancelled never grants entitlement even inside the period", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusCancelled, now.AddDate(0, 0, 10)), now)
		assert.True(t, info.IsCancelled)
		assert.False(t, info.Entitled())
	})

	t.Run("expired before period end is not entitled", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusExpired, now.AddDate(0, 0, 10)), now)
		assert.False(t, info.IsInGracePeriod)
		assert.False(t, info.Entitled())
	})
}

func TestComputeStatusInfo_Lifecycle(t *testing.T) {
	t.Parallel()

	// Merchant subscribes on day 0 with a 30-day period.
	day0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := day0.AddDate(0, 0, 30)

	t.Run("day 25 needs renewal with 5 days remaining", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusActive, endDate), day0.AddDate(0, 0, 25))
		require.True(t, info.NeedsRenewal)
		assert.Equal(t, 5, info.DaysRemaining)
		assert.True(t, info.Entitled())
	})

	t.Run("day 31 is one day into grace", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusExpired, endDate), day0.AddDate(0, 0, 31))
		require.True(t, info.IsInGracePeriod)
		assert.Equal(t, 1, info.DaysInGracePeriod)
		assert.True(t, info.Entitled())
	})

	t.Run("day 38 is overdue", func(t *testing.T) {
		t.Parallel()
		info := subscription.ComputeStatusInfo(testSub(subscription.StatusExpired, endDate), day0.AddDate(0, 0, 38))
		require.True(t, info.IsOverdue)
		assert.False(t, info.Entitled())
	})
}

func TestComputeStatusInfo_MessagePriority(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	overdue := subscription.ComputeStatusInfo(testSub(subscription.StatusExpired, now.AddDate(0, 0, -10)), now)
	assert.Contains(t, overdue.Message, "grace period has ended")

	grace := subscription.ComputeStatusInfo(testSub(subscription.StatusExpired, now.AddDate(0, 0, -2)), now)
	assert.Contains(t, grace.Message, "grace period")
	assert.NotContains(t, grace.Message, "ended")

	urgent := subscription.ComputeStatusInfo(testSub(subscription.StatusActive, now.AddDate(0, 0, 2)), now)
	assert.Contains(t, urgent.RecommendedAction, "immediately")

	soon := subscription.ComputeStatusInfo(testSub(subscription.StatusActive, now.AddDate(0, 0, 6)), now)
	assert.Contains(t, soon.RecommendedAction, "soon")

	nominal := subscription.ComputeStatusInfo(testSub(subscription.StatusActive, now.AddDate(0, 0, 20)), now)
	assert.Equal(t, "Your subscription is active.", nominal.Message)
}

func TestRenewed_EarlyRenewalExtends(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	endDate := now.AddDate(0, 0, 10)
	sub := testSub(subscription.StatusActive, endDate)

	renewed, err := subscription.Renewed(sub, subscription.PlanPremium, subscription.CycleMonthly, now)
	require.NoError(t, err)

	// Early renewal extends from the existing end date, not from now.
	assert.Equal(t, endDate, renewed.StartDate)
	assert.Equal(t, endDate.AddDate(0, 1, 0), renewed.EndDate)
	assert.Equal(t, subscription.StatusActive, renewed.Status)
	require.NotNil(t, renewed.LastPaymentDate)
	assert.Equal(t, now, *renewed.LastPaymentDate)
	require.NotNil(t, renewed.NextPaymentDate)
	assert.Equal(t, renewed.EndDate, *renewed.NextPaymentDate)
}

func TestRenewed_LapsedRenewalStartsNow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	sub := testSub(subscription.StatusExpired, now.AddDate(0, 0, -3))

	renewed, err := subscription.Renewed(sub, subscription.PlanBasic, subscription.CycleYearly, now)
	require.NoError(t, err)

	assert.Equal(t, now, renewed.StartDate)
	assert.Equal(t, now.AddDate(1, 0, 0), renewed.EndDate)
	assert.Equal(t, subscription.StatusActive, renewed.Status)
	assert.Nil(t, renewed.OverdueAt)
}

func TestRenewed_Validation(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	sub := testSub(subscription.StatusActive, now.AddDate(0, 1, 0))

	_, err := subscription.Renewed(sub, "platinum", subscription.CycleMonthly, now)
	assert.ErrorIs(t, err, subscription.ErrInvalidPlanType)

	_, err = subscription.Renewed(sub, subscription.PlanBasic, "weekly", now)
	assert.ErrorIs(t, err, subscription.ErrInvalidBillingCycle)
}

func TestMapProviderStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, subscription.StatusActive, subscription.MapProviderStatus("active"))
	assert.Equal(t, subscription.StatusActive, subscription.MapProviderStatus("trialing"))
	assert.Equal(t, subscription.StatusCancelled, subscription.MapProviderStatus("canceled"))
	assert.Equal(t, subscription.StatusCancelled, subscription.MapProviderStatus("cancelled"))
	assert.Equal(t, subscription.StatusOverdue, subscription.MapProviderStatus("past_due"))
	assert.Equal(t, subscription.StatusOverdue, subscription.MapProviderStatus("paused"))

	// Unknown provider vocabulary must never activate a merchant.
	assert.Equal(t, subscription.StatusUnchanged, subscription.MapProviderStatus("some_new_status"))
	assert.Equal(t, subscription.StatusUnchanged, subscription.MapProviderStatus(""))
}
