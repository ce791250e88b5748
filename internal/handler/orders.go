package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nirvaan-oms/api/internal/cart"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/enum"
	"github.com/nirvaan-oms/api/internal/logger"
	"github.com/nirvaan-oms/api/internal/middleware"
	"github.com/nirvaan-oms/api/internal/orderflow"
	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/nirvaan-oms/api/internal/service"
	"github.com/nirvaan-oms/api/internal/settings"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	Quote(ctx context.Context, items []cart.Item) (*service.Quote, error)
}

// StatusUpdater applies status transitions and deletes.
// Satisfied by *service.StatusService.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, role orderflow.Role, id uuid.UUID, target string) (database.Order, bool, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
}

// SettingsLoader supplies delivery settings. Satisfied by *settings.Store.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc      OrderServicer
	status   StatusUpdater
	store    OrderStore
	settings SettingsLoader
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, status StatusUpdater, store OrderStore, settings SettingsLoader) *OrderHandler {
	return &OrderHandler{svc: svc, status: status, store: store, settings: settings}
}

// RegisterRoutes registers the public order form endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Post("/orders/quote", h.Quote)
}

// RegisterAdminRoutes registers the admin order endpoints.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Get("/orders/{id}/invoice", h.Invoice)
	r.Put("/orders/{id}/status", h.UpdateStatus)
	r.Delete("/orders/{id}", h.Delete)
}

// --- Request / Response types ---

// createOrderRequest accepts either an items array or the flat form fields
// (product_id as one id or comma-joined ids, quantity as a number, numeric
// string, or JSON [{id,quantity}]).
type createOrderRequest struct {
	FullName  string             `json:"fullName"`
	Address   string             `json:"address"`
	Mobile    string             `json:"mobile"`
	Mobile2   string             `json:"mobile2"`
	Items     []orderItemRequest `json:"items"`
	ProductID string             `json:"product_id"`
	Quantity  json.RawMessage    `json:"quantity"`
}

type orderItemRequest struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  flexInt `json:"quantity"`
}

// flexInt decodes a JSON number or numeric string within the int32 range.
// Fractions truncate.
type flexInt int

var (
	minFlexInt = decimal.NewFromInt(math.MinInt32)
	maxFlexInt = decimal.NewFromInt(math.MaxInt32)
)

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	if d.LessThan(minFlexInt) || d.GreaterThan(maxFlexInt) {
		return errInvalidQuantity
	}
	*f = flexInt(d.IntPart())
	return nil
}

var errInvalidQuantity = errors.New("invalid quantity")

// cartItems resolves the request into cart selections.
func (req createOrderRequest) cartItems() ([]cart.Item, error) {
	if len(req.Items) > 0 {
		items := make([]cart.Item, len(req.Items))
		for i, it := range req.Items {
			id := it.ID
			if id == "" {
				id = it.ProductID
			}
			items[i] = cart.Item{ProductID: id, Quantity: int(it.Quantity)}
		}
		return items, nil
	}

	if strings.TrimSpace(req.ProductID) == "" {
		return nil, nil
	}

	ids := splitIDs(req.ProductID)
	qty, list, err := parseLegacyQuantity(req.Quantity)
	if err != nil {
		return nil, err
	}

	if len(ids) == 1 && len(list) == 0 {
		return []cart.Item{{ProductID: ids[0], Quantity: qty}}, nil
	}

	byID := make(map[string]int, len(list))
	for _, it := range list {
		byID[strings.TrimSpace(it.ID)] += int(it.Quantity)
	}
	items := make([]cart.Item, len(ids))
	for i, id := range ids {
		q, ok := byID[id]
		if !ok {
			q = 1
		}
		items[i] = cart.Item{ProductID: id, Quantity: q}
	}
	return items, nil
}

// parseLegacyQuantity returns either a scalar quantity or a per-product list.
func parseLegacyQuantity(raw json.RawMessage) (int, []orderItemRequest, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 1, nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, nil, errInvalidQuantity
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "[") {
			raw = json.RawMessage(s)
		} else {
			n, err := strconv.Atoi(s)
			if err != nil {
				return 0, nil, errInvalidQuantity
			}
			return n, nil, nil
		}
	}

	if raw[0] == '[' {
		var list []orderItemRequest
		if err := json.Unmarshal(raw, &list); err != nil {
			return 0, nil, errInvalidQuantity
		}
		return 0, list, nil
	}

	var n flexInt
	if err := n.UnmarshalJSON(raw); err != nil {
		return 0, nil, errInvalidQuantity
	}
	return int(n), nil, nil
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type createOrderResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	OrderID string            `json:"order_id"`
	Data    service.OrderView `json:"data"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateStatusResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Changed bool              `json:"changed"`
	Data    service.OrderView `json:"data"`
}

type lineResponse struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	PriceSource string          `json:"price_source,omitempty"`
}

type totalsResponse struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalQuantity int             `json:"totalQuantity"`
	DeliveryTotal decimal.Decimal `json:"deliveryTotal"`
	ExtraCharge   decimal.Decimal `json:"extraCharge"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

func toTotalsResponse(t pricing.Totals) totalsResponse {
	return totalsResponse{
		Subtotal:      t.Subtotal,
		TotalQuantity: t.TotalQuantity,
		DeliveryTotal: t.DeliveryTotal,
		ExtraCharge:   t.ExtraCharge,
		GrandTotal:    t.GrandTotal,
	}
}

type quoteResponse struct {
	Kind  string         `json:"kind"`
	Lines []lineResponse `json:"lines"`
	totalsResponse
}

type invoiceResponse struct {
	Order       service.OrderView `json:"order"`
	Kind        string            `json:"kind"`
	Source      string            `json:"source"`
	Lines       []lineResponse    `json:"lines"`
	StoredTotal decimal.Decimal   `json:"storedTotal"`
	totalsResponse
}

// --- Handlers ---

// Create handles POST /orders from the public order form.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := req.cartItems()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		FullName: req.FullName,
		Address:  req.Address,
		Mobile:   req.Mobile,
		Mobile2:  req.Mobile2,
		Items:    items,
	})
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, "create order", err)
		return
	}

	logger.Info().Str("order", order.OrderCode).Str("product", order.ProductName).Msg("order created")

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Success: true,
		Message: "Order created successfully",
		OrderID: order.OrderCode,
		Data:    service.NewOrderView(order),
	})
}

// Quote handles POST /orders/quote: prices a cart without storing it.
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := req.cartItems()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.svc.Quote(r.Context(), items)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, "quote order", err)
		return
	}

	lines := make([]lineResponse, 0, len(q.Cart.Items))
	for _, it := range q.Cart.Items {
		p := q.Catalog[it.ProductID]
		lines = append(lines, lineResponse{
			ProductID: it.ProductID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
			LineTotal: p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}

	writeData(w, http.StatusOK, quoteResponse{
		Kind:           q.Cart.Kind.String(),
		Lines:          lines,
		totalsResponse: toTotalsResponse(q.Totals),
	})
}

// List handles GET /orders?page&limit&status&search.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	status, err := parseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listOrders(w, r, h.store, status, nil)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOrder(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, service.NewOrderView(order))
}

// Invoice handles GET /orders/{id}/invoice: the decoded product lines and
// totals recomputed from them.
func (h *OrderHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOrder(w, r)
	if !ok {
		return
	}

	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		internalError(w, "list products", err)
		return
	}
	catalogProducts := make([]pricing.Product, len(products))
	for i, p := range products {
		catalogProducts[i] = service.ProductForPricing(p)
	}

	decoded := cart.Decode(cart.Record{
		ProductID:   order.ProductID,
		ProductName: order.ProductName,
		Quantity:    order.Quantity,
		Notes:       order.Notes.String,
	}, pricing.NewCatalog(catalogProducts))

	delivery := pricing.DefaultDeliverySettings()
	if h.settings != nil {
		st, err := h.settings.Load(r.Context())
		if err != nil {
			logger.Warn().Err(err).Msg("invoice using default delivery settings")
		}
		delivery = st.Delivery
	}

	lines := make([]lineResponse, len(decoded.Lines))
	for i, l := range decoded.Lines {
		lines[i] = lineResponse{
			ProductID:   l.ProductID,
			Name:        l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
			PriceSource: string(l.PriceSource),
		}
	}

	writeData(w, http.StatusOK, invoiceResponse{
		Order:          service.NewOrderView(order),
		Kind:           decoded.Kind.String(),
		Source:         string(decoded.Source),
		Lines:          lines,
		StoredTotal:    service.NumericToDecimal(order.TotalAmount),
		totalsResponse: toTotalsResponse(pricing.PriceLines(decoded.PricedLines(), delivery)),
	})
}

// UpdateStatus handles PUT /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	updateStatus(w, r, h.status)
}

// Delete handles DELETE /orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	if err := h.status.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, "delete order", err)
		return
	}

	writeMessage(w, http.StatusOK, "Order deleted successfully", nil)
}

// --- Shared with the courier handler ---

func (h *OrderHandler) loadOrder(w http.ResponseWriter, r *http.Request) (database.Order, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return database.Order{}, false
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return database.Order{}, false
		}
		internalError(w, "get order", err)
		return database.Order{}, false
	}
	return order, true
}

// listOrders writes one page of orders. status narrows to a single status;
// otherwise statuses (if any) limits the set.
func listOrders(w http.ResponseWriter, r *http.Request, store OrderStore, status database.NullOrderStatus, statuses []string) {
	page, limit := pageParams(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	total, err := store.CountOrders(r.Context(), database.CountOrdersParams{
		Status:   status,
		Statuses: statuses,
		Search:   search,
	})
	if err != nil {
		internalError(w, "count orders", err)
		return
	}

	orders, err := store.ListOrders(r.Context(), database.ListOrdersParams{
		Status:   status,
		Statuses: statuses,
		Search:   search,
		Limit:    int32(limit),
		Offset:   int32((page - 1) * limit),
	})
	if err != nil {
		internalError(w, "list orders", err)
		return
	}

	writePage(w, service.NewOrderViews(orders), page, limit, total)
}

// parseStatusFilter accepts any stored status, the "issued" alias, and
// "all" or empty for no filter.
func parseStatusFilter(s string) (database.NullOrderStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return database.NullOrderStatus{}, nil
	}
	if s == enum.OrderStatusConform {
		return database.NullOrderStatus{OrderStatus: database.OrderStatusConform, Valid: true}, nil
	}
	st, err := orderflow.ParseStatus(s)
	if err != nil {
		return database.NullOrderStatus{}, err
	}
	return database.NullOrderStatus{OrderStatus: database.OrderStatus(st), Valid: true}, nil
}

func updateStatus(w http.ResponseWriter, r *http.Request, svc StatusUpdater) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	order, changed, err := svc.UpdateStatus(r.Context(), orderflow.Role(claims.Role), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, orderflow.ErrUnknownStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, orderflow.ErrRoleNotAllowed):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, orderflow.ErrTransitionNotAllowed):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrStatusConflict):
			writeError(w, http.StatusConflict, "order status changed, please retry")
		default:
			internalError(w, "update order status", err)
		}
		return
	}

	msg := "Order status updated successfully"
	if !changed {
		msg = "Order already has that status"
	}
	writeJSON(w, http.StatusOK, updateStatusResponse{
		Success: true,
		Message: msg,
		Changed: changed,
		Data:    service.NewOrderView(order),
	})
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, cart.ErrEmptyCart) ||
		errors.Is(err, cart.ErrMissingProductID) ||
		errors.Is(err, cart.ErrCommaInProductID) ||
		errors.Is(err, cart.ErrQuantityTooLarge) ||
		errors.Is(err, service.ErrFullNameRequired) ||
		errors.Is(err, service.ErrAddressRequired) ||
		errors.Is(err, service.ErrMobileRequired) ||
		errors.Is(err, service.ErrInvalidMobile) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrProductUnavailable)
}
