package api

import (
	"net/http"

	"github.com/example/omni-commerce/internal/payment"
)

// PaymentHandlers exposes the payment service's read surface.
type PaymentHandlers struct {
	paymentSvc *payment.Service
}

func NewPaymentHandlers(paymentSvc *payment.Service) *PaymentHandlers {
	return &PaymentHandlers{paymentSvc: paymentSvc}
}

func (h *PaymentHandlers) GetPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.paymentSvc.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if payments == nil {
		payments = []*payment.Payment{}
	}
	respondJSON(w, http.StatusOK, payments)
}

// NewPaymentRouter wires the payment service HTTP routes.
func NewPaymentRouter(handlers *PaymentHandlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/payments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetPayments(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return withLogging("Payments", mux)
}
