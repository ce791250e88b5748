package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/export"
	"github.com/nirvaan-oms/api/internal/orderflow"
	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/nirvaan-oms/api/internal/service"
)

// CourierStore defines the database methods needed by courier handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CourierStore interface {
	OrderStore
	ListOrdersInRange(ctx context.Context, arg database.ListOrdersInRangeParams) ([]database.Order, error)
}

// CourierHandler serves the courier delivery-tracking portal.
type CourierHandler struct {
	store  CourierStore
	status StatusUpdater
	now    func() time.Time
}

// NewCourierHandler creates a new CourierHandler.
func NewCourierHandler(store CourierStore, status StatusUpdater) *CourierHandler {
	return &CourierHandler{store: store, status: status, now: time.Now}
}

// RegisterRoutes registers courier endpoints. Expected behind courier/admin auth.
func (h *CourierHandler) RegisterRoutes(r chi.Router) {
	r.Get("/courier/orders", h.List)
	r.Get("/courier/orders/export", h.Export)
	r.Put("/courier/{id}/status", h.UpdateStatus)
}

// courierStatuses is the text[] filter for the courier view.
func courierStatuses() []string {
	st := orderflow.CourierStatuses()
	out := make([]string, len(st))
	for i, s := range st {
		out[i] = string(s)
	}
	return out
}

// courierFilter narrows the courier view to one status when asked. Statuses
// outside the courier view are rejected.
func courierFilter(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return courierStatuses(), nil
	}
	st, err := orderflow.ParseStatus(s)
	if err != nil {
		return nil, err
	}
	for _, allowed := range orderflow.CourierStatuses() {
		if st == allowed {
			return []string{string(st)}, nil
		}
	}
	return nil, fmt.Errorf("status %q is not visible to couriers", s)
}

// List handles GET /courier/orders?page&limit&status&search.
func (h *CourierHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, err := courierFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listOrders(w, r, h.store, database.NullOrderStatus{}, statuses)
}

// UpdateStatus handles PUT /courier/{id}/status.
func (h *CourierHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	updateStatus(w, r, h.status)
}

// Export handles GET /courier/orders/export?status&from&to, returning an
// XLSX workbook. from and to are YYYY-MM-DD, inclusive; the default window
// is the last 30 days.
func (h *CourierHandler) Export(w http.ResponseWriter, r *http.Request) {
	statuses, err := courierFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := h.now()
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	from := today.AddDate(0, 0, -30)
	to := today

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, use YYYY-MM-DD")
			return
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, use YYYY-MM-DD")
			return
		}
		to = t
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	orders, err := h.store.ListOrdersInRange(r.Context(), database.ListOrdersInRangeParams{
		Statuses:  statuses,
		StartDate: pgtype.Timestamptz{Time: from, Valid: true},
		EndDate:   pgtype.Timestamptz{Time: to.AddDate(0, 0, 1), Valid: true},
	})
	if err != nil {
		internalError(w, "list orders for export", err)
		return
	}

	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		internalError(w, "list products for export", err)
		return
	}
	catalog := make([]pricing.Product, len(products))
	for i, p := range products {
		catalog[i] = service.ProductForPricing(p)
	}

	var buf bytes.Buffer
	if err := export.WriteOrders(&buf, orders, pricing.NewCatalog(catalog), loc); err != nil {
		internalError(w, "write export", err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(now)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
