package subscription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchantkit/keygate/pkg/pg"
)

const subscriptionColumns = `merchant_id, plan_type, billing_cycle, status, start_date, end_date,
	last_payment_date, next_payment_date, cancel_at_period_end,
	provider_sub_id, provider_customer_id, amount, currency,
	cancelled_at, overdue_at, created_at, updated_at, version`

// PGStore is the PostgreSQL Store implementation backed by a pgx pool.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a PostgreSQL-backed subscription store.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, merchantID uuid.UUID) (*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE merchant_id = $1`
	return s.scanOne(s.db.QueryRow(ctx, query, merchantID))
}

func (s *PGStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	if providerSubID == "" {
		return nil, ErrSubscriptionNotFound
	}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE provider_sub_id = $1`
	return s.scanOne(s.db.QueryRow(ctx, query, providerSubID))
}

func (s *PGStore) Save(ctx context.Context, sub *Subscription) error {
	return s.save(ctx, s.db, sub)
}

// SaveRenewal commits the subscription update and its ledger rows in a
// single transaction so a partial failure leaves no renewal state behind.
func (s *PGStore) SaveRenewal(ctx context.Context, sub *Subscription, inv *Invoice, pay *Payment) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin renewal tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := s.save(ctx, tx, sub); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO invoices (id, merchant_id, provider_txn_id, amount, currency, status, paid_at, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)`,
		inv.ID, inv.MerchantID, inv.ProviderTxnID, inv.Amount, inv.Currency, inv.Status, inv.PaidAt, inv.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO payments (id, invoice_id, merchant_id, amount, currency, method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pay.ID, pay.InvoiceID, pay.MerchantID, pay.Amount, pay.Currency, pay.Method, pay.Status, pay.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return tx.Commit(ctx)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so save can run
// standalone or inside the renewal transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PGStore) save(ctx context.Context, q querier, sub *Subscription) error {
	if sub.Version == 0 {
		_, err := q.Exec(ctx, `
			INSERT INTO subscriptions (`+subscriptionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1)`,
			sub.MerchantID, sub.PlanType, sub.BillingCycle, sub.Status, sub.StartDate, sub.EndDate,
			sub.LastPaymentDate, sub.NextPaymentDate, sub.CancelAtPeriodEnd,
			sub.ProviderSubID, sub.ProviderCustomerID, sub.Amount, sub.Currency,
			sub.CancelledAt, sub.OverdueAt, sub.CreatedAt, sub.UpdatedAt,
		)
		if err != nil {
			if pg.IsDuplicateKeyError(err) {
				return ErrVersionConflict
			}
			return fmt.Errorf("insert subscription: %w", err)
		}
		sub.Version = 1
		return nil
	}

	tag, err := q.Exec(ctx, `
		UPDATE subscriptions SET
			plan_type = $2, billing_cycle = $3, status = $4, start_date = $5, end_date = $6,
			last_payment_date = $7, next_payment_date = $8, cancel_at_period_end = $9,
			provider_sub_id = $10, provider_customer_id = $11, amount = $12, currency = $13,
			cancelled_at = $14, overdue_at = $15, updated_at = $16, version = version + 1
		WHERE merchant_id = $1 AND version = $17`,
		sub.MerchantID, sub.PlanType, sub.BillingCycle, sub.Status, sub.StartDate, sub.EndDate,
		sub.LastPaymentDate, sub.NextPaymentDate, sub.CancelAtPeriodEnd,
		sub.ProviderSubID, sub.ProviderCustomerID, sub.Amount, sub.Currency,
		sub.CancelledAt, sub.OverdueAt, sub.UpdatedAt, sub.Version,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	sub.Version++
	return nil
}

func (s *PGStore) scanOne(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.MerchantID, &sub.PlanType, &sub.BillingCycle, &sub.Status, &sub.StartDate, &sub.EndDate,
		&sub.LastPaymentDate, &sub.NextPaymentDate, &sub.CancelAtPeriodEnd,
		&sub.ProviderSubID, &sub.ProviderCustomerID, &sub.Amount, &sub.Currency,
		&sub.CancelledAt, &sub.OverdueAt, &sub.CreatedAt, &sub.UpdatedAt, &sub.Version,
	)
	if pg.IsNotFoundError(err) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &sub, nil
}

// PGInvoiceStore is the PostgreSQL invoice ledger.
type PGInvoiceStore struct {
	db *pgxpool.Pool
}

// NewPGInvoiceStore creates a PostgreSQL-backed invoice store.
func NewPGInvoiceStore(db *pgxpool.Pool) *PGInvoiceStore {
	return &PGInvoiceStore{db: db}
}

func (s *PGInvoiceStore) CreateIfAbsent(ctx context.Context, inv *Invoice) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO invoices (id, merchant_id, provider_txn_id, amount, currency, status, paid_at, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		ON CONFLICT (provider_txn_id) DO NOTHING`,
		inv.ID, inv.MerchantID, inv.ProviderTxnID, inv.Amount, inv.Currency, inv.Status, inv.PaidAt, inv.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert invoice: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGInvoiceStore) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, merchant_id, COALESCE(provider_txn_id, ''), amount, currency, status, paid_at, created_at
		FROM invoices WHERE merchant_id = $1 ORDER BY created_at DESC LIMIT $2`,
		merchantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.MerchantID, &inv.ProviderTxnID, &inv.Amount,
			&inv.Currency, &inv.Status, &inv.PaidAt, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// PGEventStore records processed webhook event IDs.
type PGEventStore struct {
	db *pgxpool.Pool
}

// NewPGEventStore creates a PostgreSQL-backed processed-event store.
func NewPGEventStore(db *pgxpool.Pool) *PGEventStore {
	return &PGEventStore{db: db}
}

func (s *PGEventStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO webhook_events (event_id, processed_at)
		VALUES ($1, now())
		ON CONFLICT (event_id) DO NOTHING`,
		eventID,
	)
	if err != nil {
		return false, fmt.Errorf("mark webhook event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGEventStore) Forget(ctx context.Context, eventID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM webhook_events WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("forget webhook event: %w", err)
	}
	return nil
}
