package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/service"
	"github.com/shopspring/decimal"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.ListCustomersRow, error)
	CountCustomers(ctx context.Context, search string) (int64, error)
	GetCustomer(ctx context.Context, mobile string) (database.GetCustomerRow, error)
	ListOrdersByMobile(ctx context.Context, arg database.ListOrdersByMobileParams) ([]database.Order, error)
}

// CustomerHandler serves the customer directory. A customer is every order
// placed from one mobile number; nothing is stored separately.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterAdminRoutes registers the customer directory. Admin only.
func (h *CustomerHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/customers", h.List)
	r.Get("/customers/{mobile}", h.Get)
	r.Get("/customers/{mobile}/orders", h.Orders)
}

// --- Response types ---

type customerResponse struct {
	Mobile         string          `json:"mobile"`
	FullName       string          `json:"fullName"`
	Address        string          `json:"address"`
	OrderCount     int64           `json:"orderCount"`
	DeliveredTotal decimal.Decimal `json:"deliveredTotal"`
	ReturnedCount  int64           `json:"returnedCount"`
	FirstOrderAt   time.Time       `json:"firstOrderAt"`
	LastOrderAt    time.Time       `json:"lastOrderAt"`
}

func toCustomerResponse(c database.GetCustomerRow) customerResponse {
	return customerResponse{
		Mobile:         c.Mobile,
		FullName:       c.FullName,
		Address:        c.Address,
		OrderCount:     c.OrderCount,
		DeliveredTotal: service.NumericToDecimal(c.DeliveredTotal),
		ReturnedCount:  c.ReturnedCount,
		FirstOrderAt:   c.FirstOrderAt.Time,
		LastOrderAt:    c.LastOrderAt.Time,
	}
}

// --- Handlers ---

// List returns customers, most recently active first.
// Query params: page, limit, search (mobile or name).
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	rows, err := h.store.ListCustomers(r.Context(), database.ListCustomersParams{
		Search: search,
		Limit:  int32(limit),
		Offset: int32((page - 1) * limit),
	})
	if err != nil {
		internalError(w, "list customers", err)
		return
	}
	total, err := h.store.CountCustomers(r.Context(), search)
	if err != nil {
		internalError(w, "count customers", err)
		return
	}

	resp := make([]customerResponse, len(rows))
	for i, c := range rows {
		resp[i] = toCustomerResponse(database.GetCustomerRow(c))
	}
	writePage(w, resp, page, limit, total)
}

// Get returns one customer's summary.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, toCustomerResponse(c))
}

// Orders returns a customer's order history, newest first.
func (h *CustomerHandler) Orders(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	page, limit := pageParams(r)
	orders, err := h.store.ListOrdersByMobile(r.Context(), database.ListOrdersByMobileParams{
		Mobile: c.Mobile,
		Limit:  int32(limit),
		Offset: int32((page - 1) * limit),
	})
	if err != nil {
		internalError(w, "list customer orders", err)
		return
	}
	writePage(w, service.NewOrderViews(orders), page, limit, c.OrderCount)
}

// --- Helpers ---

func (h *CustomerHandler) lookup(w http.ResponseWriter, r *http.Request) (database.GetCustomerRow, bool) {
	mobile := chi.URLParam(r, "mobile")
	if !isDigits(mobile) {
		writeError(w, http.StatusBadRequest, "invalid mobile number")
		return database.GetCustomerRow{}, false
	}

	c, err := h.store.GetCustomer(r.Context(), mobile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return database.GetCustomerRow{}, false
		}
		internalError(w, "get customer", err)
		return database.GetCustomerRow{}, false
	}
	return c, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
