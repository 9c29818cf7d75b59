package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/omni-commerce/internal/order"
)

// OrderHandlers exposes the order service's command/query surface.
type OrderHandlers struct {
	orderSvc *order.Service
}

func NewOrderHandlers(orderSvc *order.Service) *OrderHandlers {
	return &OrderHandlers{orderSvc: orderSvc}
}

func (h *OrderHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd order.CreateOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	o, err := h.orderSvc.Create(r.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyCustomer),
			errors.Is(err, order.ErrInvalidAmount),
			errors.Is(err, order.ErrEmptyCurrency):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

func (h *OrderHandlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderSvc.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/orders/")
	o, err := h.orderSvc.Get(r.Context(), id)
	if errors.Is(err, order.ErrOrderNotFound) {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// NewOrderRouter wires the order service HTTP routes.
func NewOrderRouter(handlers *OrderHandlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetOrders(w, r)
		case http.MethodPost:
			handlers.CreateOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/orders/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return withLogging("Orders", mux)
}
