package activationkey

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryKeyStore is an in-memory KeyStore for tests and local development.
type MemoryKeyStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]ActivationKey
	byValue map[string]uuid.UUID
	current map[uuid.UUID]uuid.UUID // merchant -> current key
}

// NewMemoryKeyStore creates an empty in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{
		byID:    make(map[uuid.UUID]ActivationKey),
		byValue: make(map[string]uuid.UUID),
		current: make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryKeyStore) GetByValue(_ context.Context, value string) (*ActivationKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byValue[value]
	if !ok {
		return nil, ErrKeyNotFound
	}
	key := s.byID[id]
	return &key, nil
}

func (s *MemoryKeyStore) GetCurrent(_ context.Context, merchantID uuid.UUID) (*ActivationKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.current[merchantID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	key := s.byID[id]
	return &key, nil
}

func (s *MemoryKeyStore) Exists(_ context.Context, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byValue[value]
	return ok, nil
}

func (s *MemoryKeyStore) Rotate(_ context.Context, newKey *ActivationKey) (*uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byValue[newKey.Key]; ok {
		return nil, ErrKeyCollision
	}

	var superseded *uuid.UUID
	if oldID, ok := s.current[newKey.MerchantID]; ok {
		old := s.byID[oldID]
		old.Status = StatusRevoked
		old.UpdatedAt = newKey.CreatedAt
		s.byID[oldID] = old
		id := oldID
		superseded = &id
	}

	s.byID[newKey.ID] = *newKey
	s.byValue[newKey.Key] = newKey.ID
	s.current[newKey.MerchantID] = newKey.ID
	return superseded, nil
}

func (s *MemoryKeyStore) UpdateStatus(_ context.Context, keyID uuid.UUID, status Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[keyID]
	if !ok {
		return ErrKeyNotFound
	}
	if key.Status == StatusRevoked {
		return ErrInvalidStatusTransition
	}
	key.Status = status
	key.UpdatedAt = now
	s.byID[keyID] = key
	if status == StatusRevoked && s.current[key.MerchantID] == keyID {
		delete(s.current, key.MerchantID)
	}
	return nil
}

func (s *MemoryKeyStore) RecordVerification(_ context.Context, keyID uuid.UUID, meta CallerMeta, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[keyID]
	if !ok {
		return ErrKeyNotFound
	}
	key.VerificationCount++
	if !key.IsUsed {
		key.IsUsed = true
		usedAt := now
		key.UsedAt = &usedAt
	}
	verifiedAt := now
	key.LastVerifiedAt = &verifiedAt
	if meta.StoreURL != "" {
		key.StoreURL = meta.StoreURL
	}
	if meta.StoreDomain != "" {
		key.StoreDomain = meta.StoreDomain
	}
	key.UpdatedAt = now
	s.byID[keyID] = key
	return nil
}

// MemoryAttemptStore is an in-memory AttemptStore for tests.
type MemoryAttemptStore struct {
	mu       sync.RWMutex
	attempts []VerificationAttempt
}

// NewMemoryAttemptStore creates an empty in-memory attempt store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{}
}

func (s *MemoryAttemptStore) Append(_ context.Context, attempt *VerificationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, *attempt)
	return nil
}

func (s *MemoryAttemptStore) ListByKey(_ context.Context, keyID uuid.UUID, limit int) ([]VerificationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []VerificationAttempt
	for i := len(s.attempts) - 1; i >= 0; i-- {
		if s.attempts[i].KeyID != keyID {
			continue
		}
		out = append(out, s.attempts[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// All returns every stored attempt, oldest first. Test helper.
func (s *MemoryAttemptStore) All() []VerificationAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]VerificationAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}
