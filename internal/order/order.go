package order

import (
	"errors"
	"time"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyCustomer = errors.New("customer id is required")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrEmptyCurrency = errors.New("currency is required")
)

// validTransitions defines allowed state transitions. Paid and cancelled
// are terminal; a cancelled order is never resurrected.
var validTransitions = map[Status][]Status{
	StatusCreated:   {StatusPaid, StatusCancelled},
	StatusPaid:      {},
	StatusCancelled: {},
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
