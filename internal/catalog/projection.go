package catalog

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/omni-commerce/internal/contracts"
	"github.com/example/omni-commerce/internal/ledger"
)

// ReceivedOrder is the denormalized, insert-only projection of
// OrderCreated. ReceivedAt is local processing time, distinct from the
// event's CreatedAt, so propagation lag stays measurable.
type ReceivedOrder struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
	ReceivedAt time.Time `json:"received_at"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// HandleOrderCreated projects the order into the read model. The
// conditional insert keyed by order id resolves duplicate delivery; the
// projection never mutates upstream state and rows are never updated.
func (s *Service) HandleOrderCreated(ctx context.Context, env contracts.Envelope) error {
	var evt contracts.OrderCreated
	if err := env.Open(&evt); err != nil {
		return err
	}

	row := &ReceivedOrder{
		ID:         uuid.New().String(),
		OrderID:    evt.OrderID,
		CustomerID: evt.CustomerID,
		Amount:     evt.Amount,
		Currency:   evt.Currency,
		CreatedAt:  evt.CreatedAt,
		ReceivedAt: time.Now().UTC(),
	}

	res, err := s.store.InsertOnce(ctx, row)
	if err != nil {
		return err
	}
	if res == ledger.AlreadyExists {
		log.Printf("[Catalog] Skipping duplicate OrderCreated for %s", evt.OrderID)
		return nil
	}

	log.Printf("[Catalog] Saved OrderCreated: %s %.2f %s", evt.OrderID, evt.Amount, evt.Currency)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*ReceivedOrder, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]*ReceivedOrder, error) {
	return s.store.List(ctx, limit)
}
