package transactions

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps transactions in process memory. It is used for local
// runs (STORE_BACKEND=memory) and tests; all writes go through one mutex so
// the PENDING check and the transition in Update are a single step.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]PaymentIntent
	nowFunc func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   map[string]PaymentIntent{},
		nowFunc: time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context, intent PaymentIntent) error {
	if err := checkCreate(&intent); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[intent.CheckoutRequestID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, intent.CheckoutRequestID)
	}
	now := m.nowFunc().UTC()
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = now
	}
	intent.UpdatedAt = now
	m.items[intent.CheckoutRequestID] = clone(intent)
	return nil
}

func (m *MemoryStore) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*PaymentIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.items[checkoutRequestID]
	if !ok {
		return nil, nil
	}
	out := clone(p)
	return &out, nil
}

func (m *MemoryStore) Update(ctx context.Context, intent PaymentIntent) error {
	if err := checkUpdate(intent); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.items[intent.CheckoutRequestID]
	if !ok || current.Status != StatusPending {
		return ErrStatusMismatch
	}

	current.Status = intent.Status
	current.ResultDesc = intent.ResultDesc
	if intent.ResultCode != nil {
		rc := *intent.ResultCode
		current.ResultCode = &rc
	}
	if intent.Status == StatusCompleted {
		if intent.Amount > 0 {
			current.Amount = intent.Amount
		}
		current.MpesaReceiptNumber = intent.MpesaReceiptNumber
		current.TransactionDate = intent.TransactionDate
	}
	current.UpdatedAt = m.nowFunc().UTC()
	m.items[intent.CheckoutRequestID] = current
	return nil
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]PaymentIntent, error) {
	m.mu.RLock()
	out := make([]PaymentIntent, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, clone(p))
	}
	m.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// clone copies the pointer fields so callers never share state with the map.
func clone(p PaymentIntent) PaymentIntent {
	if p.HouseholdID != nil {
		h := *p.HouseholdID
		p.HouseholdID = &h
	}
	if p.ResultCode != nil {
		rc := *p.ResultCode
		p.ResultCode = &rc
	}
	return p
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DynamoStore)(nil)
)
