package order

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/omni-commerce/internal/contracts"
)

// CreateOrder is the synchronous order placement command.
type CreateOrder struct {
	CustomerID string  `json:"customer_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates the command, persists the order in created status and
// queues OrderCreated in the outbox within the same transaction.
func (s *Service) Create(ctx context.Context, cmd CreateOrder) (*Order, error) {
	if strings.TrimSpace(cmd.CustomerID) == "" {
		return nil, ErrEmptyCustomer
	}
	if cmd.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(cmd.Currency) == "" {
		return nil, ErrEmptyCurrency
	}

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: cmd.CustomerID,
		Amount:     cmd.Amount,
		Currency:   strings.ToUpper(strings.TrimSpace(cmd.Currency)),
		Status:     StatusCreated,
		CreatedAt:  time.Now().UTC(),
	}

	env, err := contracts.Wrap(contracts.KindOrderCreated, contracts.OrderCreated{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Amount:     o.Amount,
		Currency:   o.Currency,
		CreatedAt:  o.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, o, env); err != nil {
		return nil, err
	}

	log.Printf("[Orders] Order created: %s (%s %.2f %s)", o.ID, o.CustomerID, o.Amount, o.Currency)
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Order, error) {
	return s.store.List(ctx)
}

// HandlePaymentSucceeded moves the order to paid. Unknown orders,
// duplicates and stale events are silent no-ops.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, env contracts.Envelope) error {
	var evt contracts.PaymentSucceeded
	if err := env.Open(&evt); err != nil {
		return err
	}

	applied, err := s.store.ApplyTransition(ctx, evt.OrderID, env.ID, StatusPaid)
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("[Orders] Skipping PaymentSucceeded for %s", evt.OrderID)
		return nil
	}
	log.Printf("[Orders] Order paid: %s", evt.OrderID)
	return nil
}

// HandlePaymentFailed moves the order to cancelled with the same guards.
func (s *Service) HandlePaymentFailed(ctx context.Context, env contracts.Envelope) error {
	var evt contracts.PaymentFailed
	if err := env.Open(&evt); err != nil {
		return err
	}

	applied, err := s.store.ApplyTransition(ctx, evt.OrderID, env.ID, StatusCancelled)
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("[Orders] Skipping PaymentFailed for %s", evt.OrderID)
		return nil
	}
	log.Printf("[Orders] Order cancelled (payment failed): %s - %s", evt.OrderID, evt.Reason)
	return nil
}
