package subscription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/keygate/pkg/subscription"
)

func fullCatalogConfig() subscription.CatalogConfig {
	return subscription.CatalogConfig{
		BasicMonthly:      "pri_basic_m",
		BasicYearly:       "pri_basic_y",
		PremiumMonthly:    "pri_premium_m",
		PremiumYearly:     "pri_premium_y",
		EnterpriseMonthly: "pri_enterprise_m",
		EnterpriseYearly:  "pri_enterprise_y",
	}
}

func TestNewPriceCatalog(t *testing.T) {
	t.Parallel()

	t.Run("binds a provider price ID to every entry", func(t *testing.T) {
		t.Parallel()
		catalog, err := subscription.NewPriceCatalog(fullCatalogConfig())
		require.NoError(t, err)

		price, err := catalog.Lookup(subscription.PlanPremium, subscription.CycleMonthly)
		require.NoError(t, err)
		assert.Equal(t, "pri_premium_m", price.ProviderPriceID)
		assert.Equal(t, int64(7900), price.Amount)

		for plan, cycles := range catalog {
			for cycle, p := range cycles {
				assert.NotEmpty(t, p.ProviderPriceID, "%s/%s", plan, cycle)
			}
		}
	})

	t.Run("rejects a missing price ID", func(t *testing.T) {
		t.Parallel()
		cfg := fullCatalogConfig()
		cfg.EnterpriseYearly = ""

		_, err := subscription.NewPriceCatalog(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enterprise/yearly")
	})
}

func TestNewPaddleCharger_CatalogValidation(t *testing.T) {
	t.Parallel()

	cfg := subscription.PaddleChargerConfig{APIKey: "test-key", Environment: "sandbox"}

	t.Run("accepts a fully bound catalog", func(t *testing.T) {
		t.Parallel()
		catalog, err := subscription.NewPriceCatalog(fullCatalogConfig())
		require.NoError(t, err)

		_, err = subscription.NewPaddleCharger(cfg, catalog)
		require.NoError(t, err)
	})

	t.Run("rejects an unbound catalog at construction", func(t *testing.T) {
		t.Parallel()
		_, err := subscription.NewPaddleCharger(cfg, subscription.DefaultPriceCatalog())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no provider price ID")
	})
}
