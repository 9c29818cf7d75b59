package payment

import (
	"strings"
	"time"
)

// FailReason is published with every declined payment.
const FailReason = "Mock fail rule: customerId contains 'fail'"

type Payment struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Success    bool      `json:"success"`
	CreatedAt  time.Time `json:"created_at"`
}

// Decide is the content-based fault-injection rule: a customer id
// containing "fail" declines, everything else succeeds. It is a pure
// function of the event fields, so replays of the same OrderCreated
// always reach the same outcome.
func Decide(customerID string) bool {
	return !strings.Contains(strings.ToLower(customerID), "fail")
}
