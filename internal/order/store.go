package order

import (
	"context"
	"sort"
	"sync"

	"github.com/example/omni-commerce/internal/contracts"
	"github.com/example/omni-commerce/internal/ledger"
	"github.com/example/omni-commerce/internal/outbox"
)

// Store persists orders and their outbox entries. Create commits the
// order row and the OrderCreated outbox entry as one logical operation,
// so an accepted order can never lose its event.
type Store interface {
	Create(ctx context.Context, o *Order, env contracts.Envelope) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)

	// ApplyTransition moves the order out of the created status. It
	// returns false without error when the delivery is a duplicate, the
	// order is unknown, or the order already reached a terminal status.
	ApplyTransition(ctx context.Context, orderID, deliveryID string, to Status) (bool, error)
}

// MemoryStore keeps orders in memory for tests and single-process
// development. It also acts as the outbox source for the dispatcher.
type MemoryStore struct {
	mu      sync.RWMutex
	orders  map[string]*Order
	pending []outbox.Entry
	claimed map[string]struct{}
	inbox   *ledger.Memory
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[string]*Order),
		claimed: make(map[string]struct{}),
		inbox:   ledger.NewMemory(),
	}
}

func (s *MemoryStore) Create(ctx context.Context, o *Order, env contracts.Envelope) error {
	payload, err := env.Encode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *o
	s.orders[o.ID] = &copied
	s.pending = append(s.pending, outbox.Entry{
		ID:        env.ID,
		OrderID:   o.ID,
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: o.CreatedAt,
	})
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]*Order, 0, len(s.orders))
	for _, o := range s.orders {
		copied := *o
		orders = append(orders, &copied)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *MemoryStore) ApplyTransition(ctx context.Context, orderID, deliveryID string, to Status) (bool, error) {
	if deliveryID != "" {
		res, err := s.inbox.RecordOnce(ctx, deliveryID)
		if err != nil {
			return false, err
		}
		if res == ledger.AlreadyExists {
			return false, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, nil
	}
	if !o.CanTransitionTo(to) {
		return false, nil
	}
	o.Status = to
	return true, nil
}

// PendingBatch returns up to limit undispatched outbox entries.
func (s *MemoryStore) PendingBatch(ctx context.Context, limit int) ([]outbox.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch := make([]outbox.Entry, 0, limit)
	for _, e := range s.pending {
		if e.Status != outbox.StatusPending {
			continue
		}
		batch = append(batch, e)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

// DispatchPending claims a batch of pending entries, publishes each, and
// marks the accepted ones dispatched. Claimed entries are invisible to
// concurrent dispatchers, mirroring the row locks the SQL store holds
// for its batch. Publish runs outside the mutex because it can re-enter
// the store through a synchronous bus.
func (s *MemoryStore) DispatchPending(ctx context.Context, limit int, publish func(outbox.Entry) error) (int, error) {
	s.mu.Lock()
	batch := make([]outbox.Entry, 0, limit)
	for _, e := range s.pending {
		if e.Status != outbox.StatusPending {
			continue
		}
		if _, taken := s.claimed[e.ID]; taken {
			continue
		}
		s.claimed[e.ID] = struct{}{}
		batch = append(batch, e)
		if len(batch) == limit {
			break
		}
	}
	s.mu.Unlock()

	dispatched := 0
	for _, e := range batch {
		err := publish(e)
		s.mu.Lock()
		delete(s.claimed, e.ID)
		if err == nil {
			for i := range s.pending {
				if s.pending[i].ID == e.ID {
					s.pending[i].Status = outbox.StatusDispatched
				}
			}
			dispatched++
		}
		s.mu.Unlock()
	}
	return dispatched, nil
}
