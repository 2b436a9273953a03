package subscription

// PlanType identifies the commercial tier a merchant subscribed to.
type PlanType string

const (
	PlanBasic      PlanType = "basic"
	PlanPremium    PlanType = "premium"
	PlanEnterprise PlanType = "enterprise"
)

// Valid reports whether the plan type is one of the known tiers.
func (p PlanType) Valid() bool {
	switch p {
	case PlanBasic, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

// BillingCycle is the renewal period length.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// Valid reports whether the billing cycle is one of the known periods.
func (c BillingCycle) Valid() bool {
	switch c {
	case CycleMonthly, CycleYearly:
		return true
	}
	return false
}

// Status is the stored lifecycle state of a subscription. It only changes
// on explicit transitions; time-derived facts live in StatusInfo.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
	StatusOverdue   Status = "overdue"

	// StatusUnchanged is returned by MapProviderStatus for provider
	// vocabulary we do not recognize. It is never persisted; callers must
	// treat it as "leave the stored status alone".
	StatusUnchanged Status = ""
)

// InvoiceStatus is the settlement state of a ledger invoice.
type InvoiceStatus string

const (
	InvoicePaid InvoiceStatus = "paid"
)

// PaymentStatus is the outcome recorded for a payment ledger entry.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
)
