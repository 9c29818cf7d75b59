package email

import (
	"fmt"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendPaymentReceipt sends a payment receipt to the customer.
func (s *Service) SendPaymentReceipt(to, orderID string, amount float64, currency string) error {
	shortID := orderID
	if len(orderID) > 8 {
		shortID = orderID[:8]
	}
	subject := fmt.Sprintf("Payment received for order %s", shortID)
	body := BuildPaymentReceiptBody(orderID, amount, currency)
	return s.send(to, subject, body)
}

// SendPaymentFailedAlert notifies the operations inbox about a declined
// payment.
func (s *Service) SendPaymentFailedAlert(to, orderID, reason string) error {
	shortID := orderID
	if len(orderID) > 8 {
		shortID = orderID[:8]
	}
	subject := fmt.Sprintf("Payment failed for order %s", shortID)
	body := BuildPaymentFailedBody(orderID, reason)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
