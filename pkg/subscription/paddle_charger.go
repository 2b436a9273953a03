package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"
)

// PaddleChargerConfig holds configuration for the Paddle API client used to
// collect renewal payments.
type PaddleChargerConfig struct {
	APIKey      string `env:"PADDLE_API_KEY,required"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleCharger implements Charger by creating a catalog transaction for
// the merchant's stored billing details.
type PaddleCharger struct {
	client  *paddle.SDK
	catalog PriceCatalog
}

// NewPaddleCharger creates a Paddle-backed charger. Every catalog entry
// must carry a provider price ID; a gap would surface only when a merchant
// on that plan tries to renew.
func NewPaddleCharger(config PaddleChargerConfig, catalog PriceCatalog) (*PaddleCharger, error) {
	if config.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	for plan, cycles := range catalog {
		for cycle, price := range cycles {
			if price.ProviderPriceID == "" {
				return nil, fmt.Errorf("catalog entry %s/%s has no provider price ID", plan, cycle)
			}
		}
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleCharger{client: client, catalog: catalog}, nil
}

// Charge creates a Paddle transaction for one billing cycle of the plan and
// returns the settled charge details. The merchant ID travels in the
// transaction's custom data so the resulting webhook can be correlated.
func (c *PaddleCharger) Charge(ctx context.Context, merchantID uuid.UUID, plan PlanType, cycle BillingCycle, method string) (*ChargeResult, error) {
	price, err := c.catalog.Lookup(plan, cycle)
	if err != nil {
		return nil, err
	}
	if price.ProviderPriceID == "" {
		return nil, fmt.Errorf("no provider price configured for %s/%s", plan, cycle)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  price.ProviderPriceID,
		Quantity: 1,
	})

	transaction, err := c.client.TransactionsClient.CreateTransaction(ctx, &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"merchant_id": merchantID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create paddle transaction: %w", err)
	}

	return &ChargeResult{
		TransactionID: transaction.ID,
		Amount:        price.Amount,
		Currency:      price.Currency,
	}, nil
}
