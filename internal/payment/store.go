package payment

import (
	"context"
	"sort"
	"sync"

	"github.com/example/omni-commerce/internal/ledger"
)

// Store persists payments. CreateOnce is the ledger's atomic conditional
// insert keyed by order id: at most one committed payment per order.
type Store interface {
	CreateOnce(ctx context.Context, p *Payment) (ledger.Result, error)
	List(ctx context.Context) ([]*Payment, error)
}

// MemoryStore keeps payments in memory for tests and single-process
// development.
type MemoryStore struct {
	mu       sync.RWMutex
	payments map[string]*Payment // keyed by order id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payments: make(map[string]*Payment)}
}

func (s *MemoryStore) CreateOnce(ctx context.Context, p *Payment) (ledger.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.OrderID]; ok {
		return ledger.AlreadyExists, nil
	}
	copied := *p
	s.payments[p.OrderID] = &copied
	return ledger.Inserted, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payments := make([]*Payment, 0, len(s.payments))
	for _, p := range s.payments {
		copied := *p
		payments = append(payments, &copied)
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return payments, nil
}
