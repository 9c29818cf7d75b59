package notification

import (
	"context"
	"log"
	"strings"

	"github.com/example/omni-commerce/internal/contracts"
)

// Mailer sends the notifier's outbound email.
type Mailer interface {
	SendPaymentReceipt(to, orderID string, amount float64, currency string) error
	SendPaymentFailedAlert(to, orderID, reason string) error
}

// Handler turns payment outcome events into email. Customers are mailed
// a receipt when their payment clears; declined payments raise an alert
// to the operations inbox instead, since failure events carry no
// customer contact.
type Handler struct {
	mailer  Mailer
	alertTo string
}

func NewHandler(mailer Mailer, alertTo string) *Handler {
	return &Handler{mailer: mailer, alertTo: alertTo}
}

// HandlePaymentSucceeded sends the customer a receipt. Customer ids that
// are not email addresses are skipped; delivery failures bubble up so
// the message is retried.
func (h *Handler) HandlePaymentSucceeded(ctx context.Context, env contracts.Envelope) error {
	var evt contracts.PaymentSucceeded
	if err := env.Open(&evt); err != nil {
		return err
	}

	if !strings.Contains(evt.CustomerID, "@") {
		log.Printf("[Notifier] No email address for customer %s, skipping receipt for %s", evt.CustomerID, evt.OrderID)
		return nil
	}

	if err := h.mailer.SendPaymentReceipt(evt.CustomerID, evt.OrderID, evt.Amount, evt.Currency); err != nil {
		log.Printf("[Notifier] Failed to send receipt to %s: %v", evt.CustomerID, err)
		return err
	}
	log.Printf("[Notifier] Receipt sent to %s for order %s", evt.CustomerID, evt.OrderID)
	return nil
}

// HandlePaymentFailed alerts the operations inbox.
func (h *Handler) HandlePaymentFailed(ctx context.Context, env contracts.Envelope) error {
	var evt contracts.PaymentFailed
	if err := env.Open(&evt); err != nil {
		return err
	}

	if h.alertTo == "" {
		log.Printf("[Notifier] No alert inbox configured, skipping alert for %s", evt.OrderID)
		return nil
	}

	if err := h.mailer.SendPaymentFailedAlert(h.alertTo, evt.OrderID, evt.Reason); err != nil {
		log.Printf("[Notifier] Failed to send alert for %s: %v", evt.OrderID, err)
		return err
	}
	log.Printf("[Notifier] Payment failure alert sent for order %s", evt.OrderID)
	return nil
}
