package activationkey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchantkit/keygate/pkg/pg"
)

const keyColumns = `id, merchant_id, key, status, expires_at, is_used, used_at,
	verification_count, last_verified_at, store_url, store_domain,
	rotated_from_id, created_at, updated_at`

// PGKeyStore is the PostgreSQL KeyStore implementation backed by a pgx pool.
type PGKeyStore struct {
	db *pgxpool.Pool
}

// NewPGKeyStore creates a PostgreSQL-backed key store.
func NewPGKeyStore(db *pgxpool.Pool) *PGKeyStore {
	return &PGKeyStore{db: db}
}

func (s *PGKeyStore) GetByValue(ctx context.Context, value string) (*ActivationKey, error) {
	query := `SELECT ` + keyColumns + ` FROM activation_keys WHERE key = $1`
	return scanKey(s.db.QueryRow(ctx, query, value))
}

func (s *PGKeyStore) GetCurrent(ctx context.Context, merchantID uuid.UUID) (*ActivationKey, error) {
	query := `SELECT ` + keyColumns + ` FROM activation_keys
		WHERE merchant_id = $1 AND status != 'revoked'`
	return scanKey(s.db.QueryRow(ctx, query, merchantID))
}

func (s *PGKeyStore) Exists(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM activation_keys WHERE key = $1)`, value,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check key existence: %w", err)
	}
	return exists, nil
}

// Rotate revokes the current key and inserts its replacement in one
// transaction. The partial unique index on (merchant_id) WHERE status !=
// 'revoked' backstops the one-current-key invariant under concurrent
// rotations.
func (s *PGKeyStore) Rotate(ctx context.Context, newKey *ActivationKey) (*uuid.UUID, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin rotation tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var superseded *uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE activation_keys SET status = 'revoked', updated_at = $2
		WHERE merchant_id = $1 AND status != 'revoked'
		RETURNING id`,
		newKey.MerchantID, newKey.CreatedAt,
	).Scan(&superseded)
	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("revoke current key: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO activation_keys (`+keyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		newKey.ID, newKey.MerchantID, newKey.Key, newKey.Status, newKey.ExpiresAt,
		newKey.IsUsed, newKey.UsedAt, newKey.VerificationCount, newKey.LastVerifiedAt,
		newKey.StoreURL, newKey.StoreDomain, newKey.RotatedFromID,
		newKey.CreatedAt, newKey.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, ErrKeyCollision
		}
		return nil, fmt.Errorf("insert activation key: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit rotation tx: %w", err)
	}
	return superseded, nil
}

// UpdateStatus changes the key status. Revoked is terminal; a revoked key
// never transitions again.
func (s *PGKeyStore) UpdateStatus(ctx context.Context, keyID uuid.UUID, status Status, now time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE activation_keys SET status = $2, updated_at = $3
		WHERE id = $1 AND status != 'revoked'`,
		keyID, status, now,
	)
	if err != nil {
		return fmt.Errorf("update key status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM activation_keys WHERE id = $1)`, keyID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("update key status: %w", err)
		}
		if exists {
			return ErrInvalidStatusTransition
		}
		return ErrKeyNotFound
	}
	return nil
}

// RecordVerification increments the counter inside the UPDATE itself, so
// concurrent verifications never lose a count to a read-modify-write race.
func (s *PGKeyStore) RecordVerification(ctx context.Context, keyID uuid.UUID, meta CallerMeta, now time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE activation_keys SET
			verification_count = verification_count + 1,
			is_used = TRUE,
			used_at = COALESCE(used_at, $2),
			last_verified_at = $2,
			store_url = COALESCE(NULLIF($3, ''), store_url),
			store_domain = COALESCE(NULLIF($4, ''), store_domain),
			updated_at = $2
		WHERE id = $1`,
		keyID, now, meta.StoreURL, meta.StoreDomain,
	)
	if err != nil {
		return fmt.Errorf("record verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func scanKey(row pgx.Row) (*ActivationKey, error) {
	var key ActivationKey
	err := row.Scan(
		&key.ID, &key.MerchantID, &key.Key, &key.Status, &key.ExpiresAt,
		&key.IsUsed, &key.UsedAt, &key.VerificationCount, &key.LastVerifiedAt,
		&key.StoreURL, &key.StoreDomain, &key.RotatedFromID,
		&key.CreatedAt, &key.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("scan activation key: %w", err)
	}
	return &key, nil
}

// PGAttemptStore is the PostgreSQL AttemptStore implementation.
type PGAttemptStore struct {
	db *pgxpool.Pool
}

// NewPGAttemptStore creates a PostgreSQL-backed attempt store.
func NewPGAttemptStore(db *pgxpool.Pool) *PGAttemptStore {
	return &PGAttemptStore{db: db}
}

func (s *PGAttemptStore) Append(ctx context.Context, attempt *VerificationAttempt) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO key_verification_attempts
			(id, key_id, merchant_id, ip_address, user_agent, store_url, store_version, success, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		attempt.ID, attempt.KeyID, attempt.MerchantID, attempt.IPAddress,
		attempt.UserAgent, attempt.StoreURL, attempt.StoreVersion, attempt.Success,
		attempt.ErrorMessage, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification attempt: %w", err)
	}
	return nil
}

func (s *PGAttemptStore) ListByKey(ctx context.Context, keyID uuid.UUID, limit int) ([]VerificationAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, key_id, merchant_id, ip_address, user_agent, store_url, store_version, success, error_message, created_at
		FROM key_verification_attempts
		WHERE key_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		keyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list verification attempts: %w", err)
	}
	defer rows.Close()

	var out []VerificationAttempt
	for rows.Next() {
		var a VerificationAttempt
		if err := rows.Scan(
			&a.ID, &a.KeyID, &a.MerchantID, &a.IPAddress, &a.UserAgent,
			&a.StoreURL, &a.StoreVersion, &a.Success, &a.ErrorMessage, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan verification attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
