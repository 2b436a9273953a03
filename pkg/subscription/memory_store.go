package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation for tests and local
// development. It honors the same version-check contract as the SQL store.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]Subscription
}

// NewMemoryStore creates an empty in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uuid.UUID]Subscription)}
}

func (m *MemoryStore) Get(ctx context.Context, merchantID uuid.UUID) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subs[merchantID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (m *MemoryStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if providerSubID == "" {
		return nil, ErrSubscriptionNotFound
	}
	for _, sub := range m.subs {
		if sub.ProviderSubID == providerSubID {
			out := sub
			return &out, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (m *MemoryStore) Save(ctx context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(sub)
}

func (m *MemoryStore) SaveRenewal(ctx context.Context, sub *Subscription, inv *Invoice, pay *Payment) error {
	// The invoice and payment ledgers live elsewhere; for the in-memory
	// store atomicity reduces to the version-checked subscription write.
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(sub)
}

func (m *MemoryStore) saveLocked(sub *Subscription) error {
	current, exists := m.subs[sub.MerchantID]
	if exists && current.Version != sub.Version {
		return ErrVersionConflict
	}
	next := *sub
	next.Version++
	m.subs[sub.MerchantID] = next
	sub.Version = next.Version
	return nil
}

// MemoryInvoiceStore is an in-memory InvoiceStore keyed by provider
// transaction ID.
type MemoryInvoiceStore struct {
	mu       sync.Mutex
	invoices []Invoice
	byTxn    map[string]struct{}
}

// NewMemoryInvoiceStore creates an empty in-memory invoice ledger.
func NewMemoryInvoiceStore() *MemoryInvoiceStore {
	return &MemoryInvoiceStore{byTxn: make(map[string]struct{})}
}

func (m *MemoryInvoiceStore) CreateIfAbsent(ctx context.Context, inv *Invoice) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inv.ProviderTxnID != "" {
		if _, seen := m.byTxn[inv.ProviderTxnID]; seen {
			return false, nil
		}
		m.byTxn[inv.ProviderTxnID] = struct{}{}
	}
	m.invoices = append(m.invoices, *inv)
	return true, nil
}

func (m *MemoryInvoiceStore) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit int) ([]Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Invoice
	for i := len(m.invoices) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.invoices[i].MerchantID == merchantID {
			out = append(out, m.invoices[i])
		}
	}
	return out, nil
}

// MemoryEventStore is an in-memory EventStore for webhook deduplication.
type MemoryEventStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryEventStore creates an empty in-memory processed-event set.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{seen: make(map[string]struct{})}
}

func (m *MemoryEventStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[eventID]; ok {
		return false, nil
	}
	m.seen[eventID] = struct{}{}
	return true, nil
}

func (m *MemoryEventStore) Forget(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, eventID)
	return nil
}
