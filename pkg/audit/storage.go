package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MemoryStorage keeps entries in memory, for tests and local development.
type MemoryStorage struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryStorage creates an empty in-memory audit store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Store(ctx context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of all stored entries in insertion order.
func (m *MemoryStorage) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// PGStorage persists audit entries in PostgreSQL.
type PGStorage struct {
	db *pgxpool.Pool
}

// NewPGStorage creates a PostgreSQL-backed audit store.
func NewPGStorage(db *pgxpool.Pool) *PGStorage {
	return &PGStorage{db: db}
}

func (s *PGStorage) Store(ctx context.Context, entry Entry) error {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_log (id, merchant_id, action, resource, resource_id, result, reason, error, ip, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID, entry.MerchantID, entry.Action, entry.Resource, entry.ResourceID,
		entry.Result, entry.Reason, entry.Error, entry.IP, entry.UserAgent, metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
