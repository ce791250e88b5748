package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nirvaan-oms/api/internal/cart"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/handler"
	"github.com/nirvaan-oms/api/internal/middleware"
	"github.com/nirvaan-oms/api/internal/orderflow"
	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/nirvaan-oms/api/internal/service"
	"github.com/nirvaan-oms/api/internal/settings"
	"github.com/shopspring/decimal"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn func(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	quoteFn  func(ctx context.Context, items []cart.Item) (*service.Quote, error)
	got      service.CreateOrderRequest
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error) {
	m.got = req
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return database.Order{
		ID:          uuid.New(),
		OrderCode:   "ORD202401001",
		FullName:    req.FullName,
		ProductID:   req.Items[0].ProductID,
		ProductName: "NIRVAAN 5KG",
		Quantity:    fmt.Sprint(req.Items[0].Quantity),
		Status:      database.OrderStatusReceived,
		TotalAmount: numeric("20350"),
	}, nil
}

func (m *mockOrderService) Quote(ctx context.Context, items []cart.Item) (*service.Quote, error) {
	return m.quoteFn(ctx, items)
}

// --- Mock StatusUpdater ---

type mockStatusUpdater struct {
	updateFn func(ctx context.Context, role orderflow.Role, id uuid.UUID, target string) (database.Order, bool, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
	gotRole  orderflow.Role
}

func (m *mockStatusUpdater) UpdateStatus(ctx context.Context, role orderflow.Role, id uuid.UUID, target string) (database.Order, bool, error) {
	m.gotRole = role
	return m.updateFn(ctx, role, id, target)
}

func (m *mockStatusUpdater) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

// --- Mock OrderStore ---

type mockOrderStore struct {
	orders   []database.Order
	products []database.Product
	lastList database.ListOrdersParams
	lastRng  database.ListOrdersInRangeParams
	listErr  error
}

func (m *mockOrderStore) matches(o database.Order, status database.NullOrderStatus, statuses []string, search string) bool {
	if status.Valid && o.Status != status.OrderStatus {
		return false
	}
	if len(statuses) > 0 {
		found := false
		for _, s := range statuses {
			if string(o.Status) == s {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if search != "" {
		s := strings.ToLower(search)
		return strings.Contains(strings.ToLower(o.FullName), s) ||
			strings.Contains(strings.ToLower(o.OrderCode), s) ||
			strings.Contains(o.Mobile, s)
	}
	return true
}

func (m *mockOrderStore) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockOrderStore) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	m.lastList = arg
	if m.listErr != nil {
		return nil, m.listErr
	}
	var matched []database.Order
	for _, o := range m.orders {
		if m.matches(o, arg.Status, arg.Statuses, arg.Search) {
			matched = append(matched, o)
		}
	}
	start := int(arg.Offset)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(arg.Limit)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (m *mockOrderStore) CountOrders(_ context.Context, arg database.CountOrdersParams) (int64, error) {
	var n int64
	for _, o := range m.orders {
		if m.matches(o, arg.Status, arg.Statuses, arg.Search) {
			n++
		}
	}
	return n, nil
}

func (m *mockOrderStore) ListProducts(_ context.Context) ([]database.Product, error) {
	return m.products, nil
}

func (m *mockOrderStore) ListOrdersInRange(_ context.Context, arg database.ListOrdersInRangeParams) ([]database.Order, error) {
	m.lastRng = arg
	var out []database.Order
	for _, o := range m.orders {
		if !m.matches(o, database.NullOrderStatus{}, arg.Statuses, "") {
			continue
		}
		t := o.CreatedAt.Time
		if t.Before(arg.StartDate.Time) || !t.Before(arg.EndDate.Time) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// --- Mock settings ---

type mockSettingsLoader struct {
	st  settings.Settings
	err error
}

func (m *mockSettingsLoader) Load(_ context.Context) (settings.Settings, error) {
	return m.st, m.err
}

// --- Helpers ---

var (
	oilID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	soapID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func testProducts() []database.Product {
	return []database.Product{
		{ID: oilID, Name: "NIRVAAN 5KG", Price: numeric("10000"), Status: database.ProductStatusAvailable},
		{ID: soapID, Name: "NIRVAAN 1L", Price: numeric("2500"), Status: database.ProductStatusAvailable},
	}
}

func makeOrder(code string, status database.OrderStatus, created time.Time) database.Order {
	ts := pgtype.Timestamptz{Time: created, Valid: true}
	return database.Order{
		ID:          uuid.New(),
		OrderCode:   code,
		FullName:    "Nimal Perera",
		Address:     "12 Galle Road, Colombo",
		Mobile:      "0771234567",
		ProductID:   oilID.String(),
		ProductName: "NIRVAAN 5KG",
		Quantity:    "2",
		Status:      status,
		TotalAmount: numeric("20350"),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

type orderDeps struct {
	svc      *mockOrderService
	status   *mockStatusUpdater
	store    *mockOrderStore
	settings *mockSettingsLoader
}

func newOrderDeps() *orderDeps {
	return &orderDeps{
		svc:      &mockOrderService{},
		status:   &mockStatusUpdater{},
		store:    &mockOrderStore{products: testProducts()},
		settings: &mockSettingsLoader{st: settings.Default()},
	}
}

func orderRouter(d *orderDeps) chi.Router {
	h := handler.NewOrderHandler(d.svc, d.status, d.store, d.settings)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Use(middleware.RequireRole("admin"))
		h.RegisterAdminRoutes(r)
	})
	return r
}

func assertDecimal(t *testing.T, got any, want string) {
	t.Helper()
	s, ok := got.(string)
	if !ok {
		t.Fatalf("expected decimal string, got %T (%v)", got, got)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	if !d.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected %s, got %s", want, s)
	}
}

// --- Create tests ---

func TestCreateOrder_Items(t *testing.T) {
	d := newOrderDeps()
	r := orderRouter(d)

	rr := postJSON(t, r, "/orders", map[string]any{
		"fullName": "Nimal Perera",
		"address":  "12 Galle Road",
		"mobile":   "0771234567",
		"items": []map[string]any{
			{"id": oilID.String(), "quantity": 2},
			{"product_id": soapID.String(), "quantity": "3"},
		},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["order_id"] != "ORD202401001" {
		t.Errorf("expected order_id ORD202401001, got %v", resp["order_id"])
	}
	data := resp["data"].(map[string]any)
	assertDecimal(t, data["total_amount"], "20350")

	want := []cart.Item{{ProductID: oilID.String(), Quantity: 2}, {ProductID: soapID.String(), Quantity: 3}}
	if len(d.svc.got.Items) != len(want) {
		t.Fatalf("expected %d items, got %v", len(want), d.svc.got.Items)
	}
	for i, it := range want {
		if d.svc.got.Items[i] != it {
			t.Errorf("item %d: expected %+v, got %+v", i, it, d.svc.got.Items[i])
		}
	}
}

func TestCreateOrder_LegacySingle(t *testing.T) {
	d := newOrderDeps()
	r := orderRouter(d)

	rr := postJSON(t, r, "/orders", map[string]any{
		"fullName":   "Nimal Perera",
		"address":    "12 Galle Road",
		"mobile":     "0771234567",
		"product_id": oilID.String(),
		"quantity":   "4",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	got := d.svc.got.Items
	if len(got) != 1 || got[0].ProductID != oilID.String() || got[0].Quantity != 4 {
		t.Errorf("unexpected items: %+v", got)
	}
}

func TestCreateOrder_LegacyMultiQuantityString(t *testing.T) {
	d := newOrderDeps()
	r := orderRouter(d)

	qty := fmt.Sprintf(`[{"id":%q,"quantity":2},{"id":%q,"quantity":"3"}]`, oilID, soapID)
	rr := postJSON(t, r, "/orders", map[string]any{
		"fullName":   "Nimal Perera",
		"address":    "12 Galle Road",
		"mobile":     "0771234567",
		"product_id": oilID.String() + "," + soapID.String(),
		"quantity":   qty,
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	got := d.svc.got.Items
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %+v", got)
	}
	if got[0].Quantity != 2 || got[1].Quantity != 3 {
		t.Errorf("unexpected quantities: %+v", got)
	}
}

func TestCreateOrder_LegacyMultiMissingQuantityDefaultsToOne(t *testing.T) {
	d := newOrderDeps()
	r := orderRouter(d)

	rr := postJSON(t, r, "/orders", map[string]any{
		"fullName":   "Nimal Perera",
		"address":    "12 Galle Road",
		"mobile":     "0771234567",
		"product_id": oilID.String() + ", " + soapID.String(),
		"quantity":   []map[string]any{{"id": oilID.String(), "quantity": 5}},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	got := d.svc.got.Items
	if len(got) != 2 || got[0].Quantity != 5 || got[1].Quantity != 1 {
		t.Errorf("unexpected items: %+v", got)
	}
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	d := newOrderDeps()
	r := orderRouter(d)

	rr := postJSON(t, r, "/orders", map[string]any{
		"fullName":   "Nimal Perera",
		"product_id": oilID.String(),
		"quantity":   "lots",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateOrder_QuantityOutOfRange(t *testing.T) {
	for _, qty := range []string{"1e30", "2147483648", "-2147483649", `"99999999999"`} {
		t.Run(qty, func(t *testing.T) {
			d := newOrderDeps()
			called := false
			d.svc.createFn = func(context.Context, service.CreateOrderRequest) (database.Order, error) {
				called = true
				return database.Order{}, nil
			}
			r := orderRouter(d)

			body := `{"fullName":"Nimal Perera","items":[{"id":"` + oilID.String() + `","quantity":` + qty + `}]}`
			req := httptest.NewRequest("POST", "/orders", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if called {
				t.Error("service should not be called")
			}
		})
	}
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"full name", service.ErrFullNameRequired, http.StatusBadRequest},
		{"mobile", service.ErrInvalidMobile, http.StatusBadRequest},
		{"empty cart", cart.ErrEmptyCart, http.StatusBadRequest},
		{"too many units", fmt.Errorf("cart total: %w", cart.ErrQuantityTooLarge), http.StatusBadRequest},
		{"unknown product", fmt.Errorf("%w: x", service.ErrProductNotFound), http.StatusBadRequest},
		{"unavailable", service.ErrProductUnavailable, http.StatusBadRequest},
		{"database down", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newOrderDeps()
			d.svc.createFn = func(context.Context, service.CreateOrderRequest) (database.Order, error) {
				return database.Order{}, tt.err
			}
			r := orderRouter(d)

			rr := postJSON(t, r, "/orders", map[string]any{"items": []map[string]any{{"id": oilID.String(), "quantity": 1}}})
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
			resp := decodeResponse(t, rr)
			if resp["success"] != false {
				t.Errorf("expected success=false, got %v", resp["success"])
			}
			if tt.want == http.StatusInternalServerError && resp["message"] != "internal server error" {
				t.Errorf("internal error leaked: %v", resp["message"])
			}
		})
	}
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	d := newOrderDeps()
	r := orderRouter(d)

	req := httptest.NewRequest("POST", "/orders", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

// --- Quote tests ---

func TestQuoteOrder(t *testing.T) {
	d := newOrderDeps()
	d.svc.quoteFn = func(_ context.Context, items []cart.Item) (*service.Quote, error) {
		c, err := cart.New(items)
		if err != nil {
			return nil, err
		}
		catalog := pricing.NewCatalog([]pricing.Product{{ID: oilID.String(), Name: "NIRVAAN 5KG", Price: decimal.NewFromInt(10000)}})
		return &service.Quote{
			Cart:    c,
			Catalog: catalog,
			Totals:  pricing.Calculate(c.Lines(), catalog, pricing.DefaultDeliverySettings()),
		}, nil
	}
	r := orderRouter(d)

	rr := postJSON(t, r, "/orders/quote", map[string]any{
		"items": []map[string]any{{"id": oilID.String(), "quantity": 2}},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeResponse(t, rr)["data"].(map[string]any)
	if data["kind"] != "single" {
		t.Errorf("expected kind single, got %v", data["kind"])
	}
	assertDecimal(t, data["subtotal"], "20000")
	assertDecimal(t, data["deliveryTotal"], "350")
	assertDecimal(t, data["grandTotal"], "20350")
	lines := data["lines"].([]any)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	assertDecimal(t, lines[0].(map[string]any)["line_total"], "20000")
}

func TestQuoteOrder_EmptyCart(t *testing.T) {
	d := newOrderDeps()
	d.svc.quoteFn = func(_ context.Context, items []cart.Item) (*service.Quote, error) {
		_, err := cart.New(items)
		return nil, err
	}
	r := orderRouter(d)

	rr := postJSON(t, r, "/orders/quote", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

// --- List / Get tests ---

func TestListOrders_Pagination(t *testing.T) {
	d := newOrderDeps()
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		d.store.orders = append(d.store.orders, makeOrder(fmt.Sprintf("ORD202401%03d", i+1), database.OrderStatusReceived, base))
	}
	r := orderRouter(d)

	rr := sendJSON(t, r, "GET", "/orders?page=2&limit=2", nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if got := len(resp["data"].([]any)); got != 2 {
		t.Errorf("expected 2 orders, got %d", got)
	}
	p := resp["pagination"].(map[string]any)
	if p["page"] != float64(2) || p["limit"] != float64(2) || p["total"] != float64(5) || p["totalPages"] != float64(3) {
		t.Errorf("unexpected pagination: %v", p)
	}
	if d.store.lastList.Offset != 2 {
		t.Errorf("expected offset 2, got %d", d.store.lastList.Offset)
	}
}

func TestListOrders_StatusFilter(t *testing.T) {
	d := newOrderDeps()
	now := time.Now()
	d.store.orders = []database.Order{
		makeOrder("ORD202401001", database.OrderStatusReceived, now),
		makeOrder("ORD202401002", database.OrderStatusSended, now),
		makeOrder("ORD202401003", database.OrderStatusDelivered, now),
	}
	r := orderRouter(d)

	rr := sendJSON(t, r, "GET", "/orders?status=issued", nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeResponse(t, rr)["data"].([]any)
	if len(data) != 1 || data[0].(map[string]any)["order_id"] != "ORD202401002" {
		t.Errorf("expected only ORD202401002, got %v", data)
	}

	rr = sendJSON(t, r, "GET", "/orders?status=lost", nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", rr.Code)
	}
}

func TestListOrders_RequiresAdmin(t *testing.T) {
	d := newOrderDeps()
	r := orderRouter(d)

	rr := sendJSON(t, r, "GET", "/orders", nil, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}
	rr = sendJSON(t, r, "GET", "/orders", nil, tokenFor(t, "courier"))
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for courier, got %d", rr.Code)
	}
}

func TestListOrders_StoreError(t *testing.T) {
	d := newOrderDeps()
	d.store.listErr = errors.New("boom")
	r := orderRouter(d)

	rr := sendJSON(t, r, "GET", "/orders", nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestGetOrder(t *testing.T) {
	d := newOrderDeps()
	o := makeOrder("ORD202401007", database.OrderStatusReceived, time.Now())
	d.store.orders = []database.Order{o}
	r := orderRouter(d)

	rr := sendJSON(t, r, "GET", "/orders/"+o.ID.String(), nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeResponse(t, rr)["data"].(map[string]any)
	if data["order_id"] != "ORD202401007" || data["fullName"] != "Nimal Perera" {
		t.Errorf("unexpected order: %v", data)
	}
	if data["mobile2"] != nil {
		t.Errorf("expected null mobile2, got %v", data["mobile2"])
	}

	rr = sendJSON(t, r, "GET", "/orders/"+uuid.NewString(), nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	rr = sendJSON(t, r, "GET", "/orders/not-a-uuid", nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestInvoice_SingleProduct(t *testing.T) {
	d := newOrderDeps()
	o := makeOrder("ORD202401008", database.OrderStatusDelivered, time.Now())
	d.store.orders = []database.Order{o}
	r := orderRouter(d)

	rr := sendJSON(t, r, "GET", "/orders/"+o.ID.String()+"/invoice", nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeResponse(t, rr)["data"].(map[string]any)
	if data["kind"] != "single" {
		t.Errorf("expected single, got %v", data["kind"])
	}
	lines := data["lines"].([]any)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0].(map[string]any)
	if line["name"] != "NIRVAAN 5KG" || line["quantity"] != float64(2) {
		t.Errorf("unexpected line: %v", line)
	}
	assertDecimal(t, data["grandTotal"], "20350")
	assertDecimal(t, data["storedTotal"], "20350")
}

func TestInvoice_MultiProductUsesStoredPrices(t *testing.T) {
	d := newOrderDeps()
	catalog := pricing.NewCatalog([]pricing.Product{
		{ID: oilID.String(), Name: "NIRVAAN 5KG", Price: decimal.NewFromInt(9000)},
		{ID: soapID.String(), Name: "NIRVAAN 1L", Price: decimal.NewFromInt(2000)},
	})
	c, err := cart.New([]cart.Item{{ProductID: oilID.String(), Quantity: 1}, {ProductID: soapID.String(), Quantity: 2}})
	if err != nil {
		t.Fatal(err)
	}
	rec, err := cart.Encode(c, catalog)
	if err != nil {
		t.Fatal(err)
	}
	o := makeOrder("ORD202401009", database.OrderStatusReceived, time.Now())
	o.ProductID, o.ProductName, o.Quantity = rec.ProductID, rec.ProductName, rec.Quantity
	o.Notes = pgtype.Text{String: rec.Notes, Valid: true}
	d.store.orders = []database.Order{o}
	r := orderRouter(d)

	rr := sendJSON(t, r, "GET", "/orders/"+o.ID.String()+"/invoice", nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeResponse(t, rr)["data"].(map[string]any)
	if data["kind"] != "multi" {
		t.Errorf("expected multi, got %v", data["kind"])
	}
	assertDecimal(t, data["subtotal"], "13000")
	assertDecimal(t, data["grandTotal"], "13350")
	for _, l := range data["lines"].([]any) {
		if src := l.(map[string]any)["price_source"]; src != "stored" {
			t.Errorf("expected stored price source, got %v", src)
		}
	}
}

// --- Status / Delete tests ---

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		changed  bool
		wantCode int
	}{
		{"changed", nil, true, http.StatusOK},
		{"no-op", nil, false, http.StatusOK},
		{"unknown status", fmt.Errorf("%w: %q", orderflow.ErrUnknownStatus, "lost"), false, http.StatusBadRequest},
		{"not found", service.ErrOrderNotFound, false, http.StatusNotFound},
		{"role", fmt.Errorf("%w: courier cannot send", orderflow.ErrRoleNotAllowed), false, http.StatusForbidden},
		{"transition", fmt.Errorf("%w: delivered -> received", orderflow.ErrTransitionNotAllowed), false, http.StatusConflict},
		{"race", service.ErrStatusConflict, false, http.StatusConflict},
		{"store", errors.New("boom"), false, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newOrderDeps()
			o := makeOrder("ORD202401010", database.OrderStatusSended, time.Now())
			d.status.updateFn = func(_ context.Context, _ orderflow.Role, id uuid.UUID, _ string) (database.Order, bool, error) {
				if id != o.ID {
					t.Errorf("expected id %s, got %s", o.ID, id)
				}
				return o, tt.changed, tt.err
			}
			r := orderRouter(d)

			rr := sendJSON(t, r, "PUT", "/orders/"+o.ID.String()+"/status", map[string]string{"status": "sended"}, tokenFor(t, "admin"))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			resp := decodeResponse(t, rr)
			if resp["changed"] != tt.changed {
				t.Errorf("expected changed=%v, got %v", tt.changed, resp["changed"])
			}
			if d.status.gotRole != orderflow.RoleAdmin {
				t.Errorf("expected admin role, got %q", d.status.gotRole)
			}
		})
	}
}

func TestUpdateStatus_MissingStatus(t *testing.T) {
	d := newOrderDeps()
	r := orderRouter(d)

	rr := sendJSON(t, r, "PUT", "/orders/"+uuid.NewString()+"/status", map[string]string{}, tokenFor(t, "admin"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteOrder(t *testing.T) {
	d := newOrderDeps()
	existing := uuid.New()
	d.status.deleteFn = func(_ context.Context, id uuid.UUID) error {
		if id != existing {
			return service.ErrOrderNotFound
		}
		return nil
	}
	r := orderRouter(d)

	rr := sendJSON(t, r, "DELETE", "/orders/"+existing.String(), nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = sendJSON(t, r, "DELETE", "/orders/"+uuid.NewString(), nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
