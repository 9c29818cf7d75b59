package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/example/omni-commerce/internal/api/middleware"
	"github.com/example/omni-commerce/internal/auth"
	"github.com/example/omni-commerce/internal/catalog"
)

// CatalogHandlers exposes the read model and report queries.
type CatalogHandlers struct {
	catalogSvc *catalog.Service
	reports    *catalog.Reports
}

func NewCatalogHandlers(catalogSvc *catalog.Service, reports *catalog.Reports) *CatalogHandlers {
	return &CatalogHandlers{catalogSvc: catalogSvc, reports: reports}
}

func (h *CatalogHandlers) GetReceivedOrders(w http.ResponseWriter, r *http.Request) {
	rows, err := h.catalogSvc.List(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []*catalog.ReceivedOrder{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *CatalogHandlers) GetReceivedOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/received-orders/")
	row, err := h.catalogSvc.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, "Received order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, row)
}

func (h *CatalogHandlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reports.Summary(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *CatalogHandlers) GetTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.reports.Totals(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

func (h *CatalogHandlers) GetTopCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.reports.TopCustomers(r.Context(), queryInt(r, "n", 5))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *CatalogHandlers) GetDaily(w http.ResponseWriter, r *http.Request) {
	days, err := h.reports.Daily(r.Context(), queryInt(r, "days", 7))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, days)
}

func (h *CatalogHandlers) GetRecent(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.Recent(r.Context(), queryInt(r, "n", 10))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []*catalog.ReceivedOrder{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// NewCatalogRouter wires the catalog service HTTP routes. Report routes
// sit behind the JWT middleware.
func NewCatalogRouter(handlers *CatalogHandlers, jwtService *auth.JWTService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/received-orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetReceivedOrders(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/received-orders/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetReceivedOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	reports := http.NewServeMux()
	reports.HandleFunc("/reports/summary", handlers.GetSummary)
	reports.HandleFunc("/reports/totals", handlers.GetTotals)
	reports.HandleFunc("/reports/top-customers", handlers.GetTopCustomers)
	reports.HandleFunc("/reports/daily", handlers.GetDaily)
	reports.HandleFunc("/reports/recent", handlers.GetRecent)
	mux.Handle("/reports/", middleware.AuthMiddleware(jwtService)(reports))

	return withLogging("Catalog", mux)
}
