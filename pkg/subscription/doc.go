// Package subscription implements the merchant subscription lifecycle:
// plan and billing-cycle bookkeeping, the derived status engine (days
// remaining, grace period, renewal pressure), explicit renewals, and
// webhook-driven transitions from the billing provider.
//
// Each merchant has exactly one subscription, keyed by merchant ID. The
// stored status only changes on an explicit transition (renewal, webhook
// event, administrative action); time-dependent facts such as grace-period
// membership are derived on every read from the period end date and the
// current clock, so they never depend on a background sweep.
//
// # Status engine
//
//	sub, _ := store.Get(ctx, merchantID)
//	info := subscription.ComputeStatusInfo(sub, time.Now().UTC())
//	if info.Entitled() {
//	    // merchant may operate
//	}
//
// # Webhooks
//
// Provider events arrive through a BillingProvider implementation which is
// responsible for signature verification. Events are deduplicated by the
// provider event ID, and transaction_completed events create at most one
// invoice per provider transaction ID, so at-least-once delivery is safe.
package subscription
