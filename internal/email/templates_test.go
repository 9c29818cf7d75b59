package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "49.90 USD", FormatAmount(49.9, "USD"))
	assert.Equal(t, "0.10 EUR", FormatAmount(0.1, "EUR"))
	assert.Equal(t, "1000.00", FormatAmount(1000, ""))
}

func TestBuildPaymentReceiptBody(t *testing.T) {
	body := BuildPaymentReceiptBody("order-1", 49.9, "USD")
	assert.Contains(t, body, "order-1")
	assert.Contains(t, body, "49.90 USD")
	assert.Contains(t, body, "Payment received")
}

func TestBuildPaymentFailedBody(t *testing.T) {
	body := BuildPaymentFailedBody("order-2", "card declined")
	assert.Contains(t, body, "order-2")
	assert.Contains(t, body, "card declined")
	assert.Contains(t, body, "Payment failed")
}
