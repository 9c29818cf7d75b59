package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/example/omni-commerce/internal/ledger"
)

var ErrNotFound = errors.New("received order not found")

// Store persists the read model. InsertOnce is the ledger's atomic
// conditional insert keyed by order id: one projection per order.
type Store interface {
	InsertOnce(ctx context.Context, row *ReceivedOrder) (ledger.Result, error)
	Get(ctx context.Context, id string) (*ReceivedOrder, error)
	// List returns rows newest-received first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*ReceivedOrder, error)
}

// MemoryStore keeps the read model in memory for tests and
// single-process development.
type MemoryStore struct {
	mu      sync.RWMutex
	byOrder map[string]*ReceivedOrder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byOrder: make(map[string]*ReceivedOrder)}
}

func (s *MemoryStore) InsertOnce(ctx context.Context, row *ReceivedOrder) (ledger.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byOrder[row.OrderID]; ok {
		return ledger.AlreadyExists, nil
	}
	copied := *row
	s.byOrder[row.OrderID] = &copied
	return ledger.Inserted, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*ReceivedOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.byOrder {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*ReceivedOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]*ReceivedOrder, 0, len(s.byOrder))
	for _, row := range s.byOrder {
		copied := *row
		rows = append(rows, &copied)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ReceivedAt.After(rows[j].ReceivedAt)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
