package subscription

import (
	"fmt"
	"math"
	"time"
)

// GracePeriodDays is the fixed window after the period end during which an
// expired subscription still grants entitlement.
const GracePeriodDays = 7

// renewalWindowDays is how close to the period end an active subscription
// starts reporting NeedsRenewal.
const renewalWindowDays = 7

// StatusInfo is the derived, read-only view of a subscription at a point in
// time. All time-dependent fields are computed from EndDate and the clock,
// never from the stored status alone, so a stale status row cannot hide an
// elapsed grace period.
type StatusInfo struct {
	Status            Status
	DaysRemaining     int // ceil((EndDate - now) / 24h); negative once past due
	IsActive          bool
	IsExpired         bool
	IsSuspended       bool
	IsCancelled       bool
	IsInGracePeriod   bool
	DaysInGracePeriod int // days elapsed since EndDate while in grace
	NeedsRenewal      bool
	IsOverdue         bool
	Message           string
	RecommendedAction string
}

// Entitled reports whether the merchant may currently operate. Suspension
// and cancellation always revoke entitlement; otherwise an active or
// in-grace subscription is entitled until the grace period after EndDate
// has fully elapsed.
func (i StatusInfo) Entitled() bool {
	if i.IsSuspended || i.IsCancelled || i.IsOverdue {
		return false
	}
	return i.IsActive || i.IsInGracePeriod
}

// ComputeStatusInfo derives the status facts for sub at the given time.
// It is a pure function with no side effects.
func ComputeStatusInfo(sub *Subscription, now time.Time) StatusInfo {
	info := StatusInfo{
		Status:      sub.Status,
		IsActive:    sub.Status == StatusActive,
		IsExpired:   sub.Status == StatusExpired,
		IsSuspended: sub.Status == StatusSuspended,
		IsCancelled: sub.Status == StatusCancelled,
	}

	remaining := sub.EndDate.Sub(now)
	info.DaysRemaining = int(math.Ceil(remaining.Hours() / 24))

	if info.IsSuspended {
		info.Message = "Your subscription is suspended."
		info.RecommendedAction = "Contact support to resolve the suspension."
		return info
	}
	if info.IsCancelled {
		info.Message = "Your subscription has been cancelled."
		info.RecommendedAction = "Subscribe again to restore access."
		return info
	}

	// Grace window is half-open: the instant EndDate passes the merchant is
	// in grace, and exactly GracePeriodDays later they are overdue.
	lapsed := -remaining
	if lapsed > 0 {
		if lapsed <= GracePeriodDays*24*time.Hour {
			info.IsInGracePeriod = true
			info.DaysInGracePeriod = int(math.Ceil(lapsed.Hours() / 24))
		} else {
			info.IsOverdue = true
		}
	} else if info.IsActive && info.DaysRemaining <= renewalWindowDays {
		info.NeedsRenewal = true
	}
	if sub.Status == StatusOverdue {
		info.IsOverdue = true
		info.IsInGracePeriod = false
	}

	switch {
	case info.IsOverdue:
		info.Message = "Your subscription has expired and the grace period has ended."
		info.RecommendedAction = "Renew now to restore access to your store."
	case info.IsInGracePeriod:
		info.Message = fmt.Sprintf("Your subscription expired %s ago. You are in a %d-day grace period.",
			pluralDays(info.DaysInGracePeriod), GracePeriodDays)
		info.RecommendedAction = "Renew now to avoid losing access."
	case info.NeedsRenewal && info.DaysRemaining <= 3:
		info.Message = fmt.Sprintf("Your subscription expires in %s.", pluralDays(info.DaysRemaining))
		info.RecommendedAction = "Renew immediately to avoid interruption."
	case info.NeedsRenewal:
		info.Message = fmt.Sprintf("Your subscription expires in %s.", pluralDays(info.DaysRemaining))
		info.RecommendedAction = "Consider renewing soon."
	default:
		info.Message = "Your subscription is active."
		info.RecommendedAction = "No action needed."
	}

	return info
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// Renewed returns a copy of sub with one billing cycle applied starting from
// max(now, EndDate) when the subscription is still running, so an early
// renewal extends the paid period instead of resetting it.
func Renewed(sub *Subscription, plan PlanType, cycle BillingCycle, now time.Time) (Subscription, error) {
	if !plan.Valid() {
		return Subscription{}, fmt.Errorf("%w: unknown plan type %q", ErrInvalidPlanType, plan)
	}
	if !cycle.Valid() {
		return Subscription{}, fmt.Errorf("%w: unknown billing cycle %q", ErrInvalidBillingCycle, cycle)
	}

	start := now
	if sub.Status == StatusActive && sub.EndDate.After(now) {
		start = sub.EndDate
	}

	var end time.Time
	switch cycle {
	case CycleMonthly:
		end = start.AddDate(0, 1, 0)
	case CycleYearly:
		end = start.AddDate(1, 0, 0)
	}

	next := *sub
	next.PlanType = plan
	next.BillingCycle = cycle
	next.Status = StatusActive
	next.StartDate = start
	next.EndDate = end
	next.LastPaymentDate = &now
	next.NextPaymentDate = &end
	next.OverdueAt = nil
	next.UpdatedAt = now
	return next, nil
}
