package subscription

import "fmt"

// Price is the charge for one billing cycle of a plan, in the smallest
// currency unit, together with the billing provider's catalog price ID.
type Price struct {
	ProviderPriceID string
	Amount          int64
	Currency        string
}

// PriceCatalog maps plan and cycle to the price charged on renewal.
type PriceCatalog map[PlanType]map[BillingCycle]Price

// Lookup returns the price for a plan and cycle.
func (c PriceCatalog) Lookup(plan PlanType, cycle BillingCycle) (Price, error) {
	cycles, ok := c[plan]
	if !ok {
		return Price{}, fmt.Errorf("%w: no prices for plan %q", ErrInvalidPlanType, plan)
	}
	price, ok := cycles[cycle]
	if !ok {
		return Price{}, fmt.Errorf("%w: no %q price for plan %q", ErrInvalidBillingCycle, cycle, plan)
	}
	return price, nil
}

// CatalogConfig carries the billing provider's catalog price IDs, one per
// plan and cycle. All six are required; a renewal cannot be charged without
// a provider price to put on the transaction.
type CatalogConfig struct {
	BasicMonthly      string `env:"PADDLE_PRICE_BASIC_MONTHLY,required"`
	BasicYearly       string `env:"PADDLE_PRICE_BASIC_YEARLY,required"`
	PremiumMonthly    string `env:"PADDLE_PRICE_PREMIUM_MONTHLY,required"`
	PremiumYearly     string `env:"PADDLE_PRICE_PREMIUM_YEARLY,required"`
	EnterpriseMonthly string `env:"PADDLE_PRICE_ENTERPRISE_MONTHLY,required"`
	EnterpriseYearly  string `env:"PADDLE_PRICE_ENTERPRISE_YEARLY,required"`
}

// NewPriceCatalog binds the built-in USD price list to the provider price
// IDs from cfg and rejects any entry left without one.
func NewPriceCatalog(cfg CatalogConfig) (PriceCatalog, error) {
	catalog := DefaultPriceCatalog()
	ids := map[PlanType]map[BillingCycle]string{
		PlanBasic:      {CycleMonthly: cfg.BasicMonthly, CycleYearly: cfg.BasicYearly},
		PlanPremium:    {CycleMonthly: cfg.PremiumMonthly, CycleYearly: cfg.PremiumYearly},
		PlanEnterprise: {CycleMonthly: cfg.EnterpriseMonthly, CycleYearly: cfg.EnterpriseYearly},
	}
	for plan, cycles := range catalog {
		for cycle, price := range cycles {
			id := ids[plan][cycle]
			if id == "" {
				return nil, fmt.Errorf("no provider price ID configured for %s/%s", plan, cycle)
			}
			price.ProviderPriceID = id
			cycles[cycle] = price
		}
	}
	return catalog, nil
}

// DefaultPriceCatalog returns the built-in USD price list without provider
// price IDs. NewPriceCatalog binds the IDs before the charger is wired.
func DefaultPriceCatalog() PriceCatalog {
	return PriceCatalog{
		PlanBasic: {
			CycleMonthly: {Amount: 2900, Currency: "USD"},
			CycleYearly:  {Amount: 29000, Currency: "USD"},
		},
		PlanPremium: {
			CycleMonthly: {Amount: 7900, Currency: "USD"},
			CycleYearly:  {Amount: 79000, Currency: "USD"},
		},
		PlanEnterprise: {
			CycleMonthly: {Amount: 19900, Currency: "USD"},
			CycleYearly:  {Amount: 199000, Currency: "USD"},
		},
	}
}
