package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
}

// PaddleProvider implements BillingProvider for Paddle.
type PaddleProvider struct {
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle provider that verifies webhook
// signatures with the shared secret.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	return &PaddleProvider{
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
	}, nil
}

// ParseWebhook verifies the Paddle-Signature header against the raw payload
// and normalizes the event. Nothing in the payload, including the merchant
// ID in custom data, is trusted before verification succeeds.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrSignatureInvalid, err)
	}
	if !valid {
		return nil, ErrSignatureInvalid
	}

	var raw struct {
		EventID    string          `json:"event_id"`
		EventType  string          `json:"event_type"`
		OccurredAt string          `json:"occurred_at"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Join(ErrMalformedWebhook, err)
	}

	event := &WebhookEvent{
		EventID:       raw.EventID,
		Kind:          mapPaddleEventType(raw.EventType),
		ProviderEvent: raw.EventType,
	}
	if t, err := time.Parse(time.RFC3339, raw.OccurredAt); err == nil {
		event.OccurredAt = t
	}

	switch {
	case strings.HasPrefix(raw.EventType, "subscription."):
		if err := parsePaddleSubscription(raw.Data, event); err != nil {
			return nil, err
		}
	case strings.HasPrefix(raw.EventType, "transaction."):
		if err := parsePaddleTransaction(raw.Data, event); err != nil {
			return nil, err
		}
	}

	return event, nil
}

func parsePaddleSubscription(data json.RawMessage, event *WebhookEvent) error {
	var sub struct {
		ID                   string            `json:"id"`
		Status               string            `json:"status"`
		CustomerID           string            `json:"customer_id"`
		CustomData           map[string]any    `json:"custom_data"`
		CurrentBillingPeriod *struct {
			StartsAt string `json:"starts_at"`
			EndsAt   string `json:"ends_at"`
		} `json:"current_billing_period"`
		ScheduledChange *struct {
			Action string `json:"action"`
		} `json:"scheduled_change"`
	}
	if err := json.Unmarshal(data, &sub); err != nil {
		return errors.Join(ErrMalformedWebhook, err)
	}

	event.SubscriptionID = sub.ID
	event.Status = sub.Status
	event.CustomerID = sub.CustomerID
	event.MerchantID = customDataString(sub.CustomData, "merchant_id")
	if sub.CurrentBillingPeriod != nil {
		event.PeriodStart = parseRFC3339(sub.CurrentBillingPeriod.StartsAt)
		event.PeriodEnd = parseRFC3339(sub.CurrentBillingPeriod.EndsAt)
	}
	if sub.ScheduledChange != nil && sub.ScheduledChange.Action == "cancel" {
		event.ScheduledCancel = true
	}
	return nil
}

func parsePaddleTransaction(data json.RawMessage, event *WebhookEvent) error {
	var txn struct {
		ID             string         `json:"id"`
		Status         string         `json:"status"`
		CustomerID     string         `json:"customer_id"`
		SubscriptionID string         `json:"subscription_id"`
		CurrencyCode   string         `json:"currency_code"`
		CustomData     map[string]any `json:"custom_data"`
		Details        *struct {
			Totals *struct {
				GrandTotal string `json:"grand_total"`
			} `json:"totals"`
		} `json:"details"`
	}
	if err := json.Unmarshal(data, &txn); err != nil {
		return errors.Join(ErrMalformedWebhook, err)
	}

	event.TransactionID = txn.ID
	event.SubscriptionID = txn.SubscriptionID
	event.Status = txn.Status
	event.CustomerID = txn.CustomerID
	event.MerchantID = customDataString(txn.CustomData, "merchant_id")
	event.Currency = txn.CurrencyCode
	if txn.Details != nil && txn.Details.Totals != nil {
		// Paddle reports totals as decimal strings of the smallest unit.
		if amount, err := strconv.ParseInt(txn.Details.Totals.GrandTotal, 10, 64); err == nil {
			event.Amount = amount
		}
	}
	return nil
}

func customDataString(custom map[string]any, key string) string {
	if custom == nil {
		return ""
	}
	if v, ok := custom[key].(string); ok {
		return v
	}
	return ""
}

func parseRFC3339(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// mapPaddleEventType maps Paddle event names to internal event kinds.
func mapPaddleEventType(paddleEvent string) EventKind {
	switch paddleEvent {
	case "subscription.created":
		return EventSubscriptionCreated
	case "subscription.updated":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCanceled
	case "subscription.paused":
		return EventSubscriptionPaused
	case "subscription.resumed":
		return EventSubscriptionResumed
	case "transaction.completed":
		return EventTransactionCompleted
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		return EventIgnored
	}
}
