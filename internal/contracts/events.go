package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event kinds. The set is closed: every message on the bus carries exactly
// one of these discriminants.
const (
	KindOrderCreated     = "OrderCreated"
	KindPaymentSucceeded = "PaymentSucceeded"
	KindPaymentFailed    = "PaymentFailed"
)

// Topics and per-service queue (consumer group) names. Each consuming
// service binds its own durable queue so redelivery and backlog are
// per-service.
const (
	TopicOrderCreated  = "omni.order-created"
	TopicPaymentEvents = "omni.payment-events"
	TopicDeadLetter    = "omni.dead-letter"

	QueuePaymentOrderCreated   = "payment.order-created"
	QueueCatalogOrderCreated   = "catalog.order-created"
	QueueOrderPaymentEvents    = "order.payment-events"
	QueueNotifierPaymentEvents = "notifier.payment-events"
)

// OrderCreated is published exactly once per order by the order service.
type OrderCreated struct {
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

// PaymentSucceeded is published at most once per order by the payment service.
type PaymentSucceeded struct {
	PaymentID  string    `json:"payment_id"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	PaidAt     time.Time `json:"paid_at"`
}

// PaymentFailed is published at most once per order, mutually exclusive
// with PaymentSucceeded for the same order id.
type PaymentFailed struct {
	OrderID  string    `json:"order_id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// Envelope is the wire frame around every event.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Wrap builds an envelope around an event payload.
func Wrap(kind string, event any) (Envelope, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return Envelope{
		ID:         uuid.New().String(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}, nil
}

// Open decodes the envelope payload into target.
func (e Envelope) Open(target any) error {
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return nil
}

// Decode parses a raw bus message into an envelope.
func Decode(value []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// Encode returns the wire form of the envelope.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
