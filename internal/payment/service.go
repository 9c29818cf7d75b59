package payment

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/omni-commerce/internal/bus"
	"github.com/example/omni-commerce/internal/contracts"
	"github.com/example/omni-commerce/internal/ledger"
)

type Service struct {
	store     Store
	publisher bus.Publisher
}

func NewService(store Store, publisher bus.Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// HandleOrderCreated decides the payment outcome, persists the payment
// via the ledger's conditional insert, and publishes exactly one outcome
// event for a fresh insert. A duplicate delivery loses the insert race
// and is skipped without re-publishing.
func (s *Service) HandleOrderCreated(ctx context.Context, env contracts.Envelope) error {
	var evt contracts.OrderCreated
	if err := env.Open(&evt); err != nil {
		return err
	}

	success := Decide(evt.CustomerID)

	p := &Payment{
		ID:         uuid.New().String(),
		OrderID:    evt.OrderID,
		CustomerID: evt.CustomerID,
		Amount:     evt.Amount,
		Currency:   evt.Currency,
		Success:    success,
		CreatedAt:  time.Now().UTC(),
	}

	res, err := s.store.CreateOnce(ctx, p)
	if err != nil {
		return err
	}
	if res == ledger.AlreadyExists {
		log.Printf("[Payments] Skipping duplicate OrderCreated for %s", evt.OrderID)
		return nil
	}

	if !success {
		out, err := contracts.Wrap(contracts.KindPaymentFailed, contracts.PaymentFailed{
			OrderID:  p.OrderID,
			Reason:   FailReason,
			FailedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := s.publisher.Publish(ctx, p.OrderID, out); err != nil {
			return err
		}
		log.Printf("[Payments] Payment FAILED published: %s", p.OrderID)
		return nil
	}

	out, err := contracts.Wrap(contracts.KindPaymentSucceeded, contracts.PaymentSucceeded{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		CustomerID: p.CustomerID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		PaidAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, p.OrderID, out); err != nil {
		return err
	}
	log.Printf("[Payments] Payment saved & PaymentSucceeded published: %s", p.OrderID)
	return nil
}

func (s *Service) List(ctx context.Context) ([]*Payment, error) {
	return s.store.List(ctx)
}
