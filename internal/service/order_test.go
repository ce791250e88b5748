package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nirvaan-oms/api/internal/cart"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/nirvaan-oms/api/internal/settings"
	"github.com/nirvaan-oms/api/internal/ws"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getNextOrderNumberFn func(ctx context.Context, prefix string) (int32, error)
	createOrderFn        func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
}

func (m *mockOrderStore) GetNextOrderNumber(ctx context.Context, prefix string) (int32, error) {
	return m.getNextOrderNumberFn(ctx, prefix)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}

// mockCatalog implements CatalogStore.
type mockCatalog struct {
	products map[uuid.UUID]database.Product
	err      error
}

func (m *mockCatalog) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []database.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// mockSettings implements SettingsLoader.
type mockSettings struct {
	st  settings.Settings
	err error
}

func (m *mockSettings) Load(ctx context.Context) (settings.Settings, error) {
	return m.st, m.err
}

// mockHub records broadcasts.
type mockHub struct {
	mu     sync.Mutex
	events []ws.Event
	rooms  [][]ws.Room
}

func (m *mockHub) Broadcast(event ws.Event, rooms ...ws.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.rooms = append(m.rooms, rooms)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := NumericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func product(name, price string, status database.ProductStatus) database.Product {
	return database.Product{
		ID:     uuid.New(),
		Name:   name,
		Price:  makeNumeric(price),
		Status: status,
	}
}

type fixture struct {
	svc     *OrderService
	tx      *mockTx
	store   *mockOrderStore
	catalog *mockCatalog
	hub     *mockHub
	oil     database.Product
	soap    database.Product
}

// newFixture wires an OrderService with a two-product catalog and default
// delivery settings. The clock is pinned to January 2024.
func newFixture() *fixture {
	oil := product("NIRVAAN 5KG", "10000.00", database.ProductStatusAvailable)
	soap := product("Coconut Soap", "250.00", database.ProductStatusAvailable)

	f := &fixture{
		tx:  &mockTx{},
		hub: &mockHub{},
		oil: oil, soap: soap,
		catalog: &mockCatalog{products: map[uuid.UUID]database.Product{
			oil.ID:  oil,
			soap.ID: soap,
		}},
	}
	f.store = &mockOrderStore{
		getNextOrderNumberFn: func(ctx context.Context, prefix string) (int32, error) {
			return 1, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:          uuid.New(),
				OrderCode:   arg.OrderCode,
				FullName:    arg.FullName,
				Address:     arg.Address,
				Mobile:      arg.Mobile,
				Mobile2:     arg.Mobile2,
				ProductID:   arg.ProductID,
				ProductName: arg.ProductName,
				Quantity:    arg.Quantity,
				Status:      arg.Status,
				TotalAmount: arg.TotalAmount,
				Notes:       arg.Notes,
			}, nil
		},
	}

	pool := &mockTxBeginner{tx: f.tx}
	newStore := func(db database.DBTX) OrderStore { return f.store }
	loader := &mockSettings{st: settings.Default()}
	f.svc = NewOrderService(pool, newStore, f.catalog, loader, f.hub)
	f.svc.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	return f
}

func basicReq(items ...cart.Item) CreateOrderRequest {
	return CreateOrderRequest{
		FullName: "Kamal Perera",
		Address:  "123 Main Street, Colombo",
		Mobile:   "94701234567",
		Items:    items,
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_CustomerValidation(t *testing.T) {
	f := newFixture()
	item := cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}

	tests := []struct {
		name    string
		mutate  func(r *CreateOrderRequest)
		wantErr error
	}{
		{"missing name", func(r *CreateOrderRequest) { r.FullName = "  " }, ErrFullNameRequired},
		{"missing address", func(r *CreateOrderRequest) { r.Address = "" }, ErrAddressRequired},
		{"missing mobile", func(r *CreateOrderRequest) { r.Mobile = "" }, ErrMobileRequired},
		{"letters in mobile", func(r *CreateOrderRequest) { r.Mobile = "07x1234567" }, ErrInvalidMobile},
		{"short mobile", func(r *CreateOrderRequest) { r.Mobile = "12345" }, ErrInvalidMobile},
		{"bad mobile2", func(r *CreateOrderRequest) { r.Mobile2 = "call me" }, ErrInvalidMobile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := basicReq(item)
			tt.mutate(&req)
			_, err := f.svc.CreateOrder(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateOrder(context.Background(), basicReq())
	if !errors.Is(err, cart.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got: %v", err)
	}
}

func TestCreateOrder_InvalidProductID(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: "PROD001", Quantity: 1}))
	if !errors.Is(err, ErrInvalidProductID) {
		t.Fatalf("expected ErrInvalidProductID, got: %v", err)
	}
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: uuid.NewString(), Quantity: 1}))
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got: %v", err)
	}
}

func TestCreateOrder_ProductUnavailable(t *testing.T) {
	f := newFixture()
	gone := product("Old Oil", "9000.00", database.ProductStatusDiscontinued)
	f.catalog.products[gone.ID] = gone

	_, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: gone.ID.String(), Quantity: 1}))
	if !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got: %v", err)
	}
}

func TestCreateOrder_CatalogError(t *testing.T) {
	f := newFixture()
	f.catalog.err = errors.New("connection refused")

	_, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err == nil || !strings.Contains(err.Error(), "list products") {
		t.Fatalf("expected wrapped list products error, got: %v", err)
	}
}

// =====================
// Pricing + encoding
// =====================

func TestCreateOrder_SingleProduct(t *testing.T) {
	f := newFixture()

	var got database.CreateOrderParams
	create := f.store.createOrderFn
	f.store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		got = arg
		return create(ctx, arg)
	}

	order, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2 x 10000 + 350 delivery
	if !numericEquals(got.TotalAmount, "20350") {
		t.Errorf("total: expected 20350, got %v", NumericToDecimal(got.TotalAmount))
	}
	if got.ProductID != f.oil.ID.String() {
		t.Errorf("product_id: got %q", got.ProductID)
	}
	if got.ProductName != "NIRVAAN 5KG" {
		t.Errorf("product_name: got %q", got.ProductName)
	}
	if got.Quantity != "2" {
		t.Errorf("quantity: expected \"2\", got %q", got.Quantity)
	}
	if got.Notes.Valid {
		t.Errorf("single orders carry no notes, got %q", got.Notes.String)
	}
	if got.Status != database.OrderStatusReceived {
		t.Errorf("status: got %s", got.Status)
	}
	if order.OrderCode != "ORD202401001" {
		t.Errorf("order code: expected ORD202401001, got %s", order.OrderCode)
	}
	if !f.tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestCreateOrder_MultiProductRoundTrip(t *testing.T) {
	f := newFixture()

	items := []cart.Item{
		{ProductID: f.oil.ID.String(), Quantity: 1},
		{ProductID: f.soap.ID.String(), Quantity: 4},
	}
	order, err := f.svc.CreateOrder(context.Background(), basicReq(items...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 10000 + 4 x 250 + 350
	if !numericEquals(order.TotalAmount, "11350") {
		t.Errorf("total: expected 11350, got %v", NumericToDecimal(order.TotalAmount))
	}
	if !strings.Contains(order.ProductID, ",") {
		t.Errorf("multi product_id should be comma-joined, got %q", order.ProductID)
	}

	decoded := cart.Decode(cart.Record{
		ProductID:   order.ProductID,
		ProductName: order.ProductName,
		Quantity:    order.Quantity,
		Notes:       order.Notes.String,
	}, nil)
	if decoded.Source != cart.SourceNotesProducts {
		t.Errorf("decode source: expected notes.products, got %s", decoded.Source)
	}
	totals := pricing.PriceLines(decoded.PricedLines(), pricing.DefaultDeliverySettings())
	if !totals.GrandTotal.Equal(NumericToDecimal(order.TotalAmount)) {
		t.Errorf("decoded total %v does not match stored %v", totals.GrandTotal, NumericToDecimal(order.TotalAmount))
	}
}

func TestCreateOrder_BulkQuantity(t *testing.T) {
	f := newFixture()

	// 31 units: delivery waived, ceil(16/15)=2 blocks of 1000
	order, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.soap.ID.String(), Quantity: 31}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(order.TotalAmount, "9750") {
		t.Errorf("total: expected 7750+2000=9750, got %v", NumericToDecimal(order.TotalAmount))
	}
}

func TestCreateOrder_QuantityTooLarge(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateOrder(context.Background(), basicReq(
		cart.Item{ProductID: f.oil.ID.String(), Quantity: pricing.MaxQuantity},
		cart.Item{ProductID: f.soap.ID.String(), Quantity: pricing.MaxQuantity},
	))
	if !errors.Is(err, cart.ErrQuantityTooLarge) {
		t.Fatalf("expected ErrQuantityTooLarge, got %v", err)
	}
}

func TestCreateOrder_UppercaseProductID(t *testing.T) {
	f := newFixture()

	order, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: strings.ToUpper(f.oil.ID.String()), Quantity: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ProductID != f.oil.ID.String() {
		t.Errorf("product_id should be canonical, got %q", order.ProductID)
	}
	if !numericEquals(order.TotalAmount, "10350") {
		t.Errorf("total: expected 10350, got %v", NumericToDecimal(order.TotalAmount))
	}
}

func TestCreateOrder_SettingsDownUsesDefaults(t *testing.T) {
	f := newFixture()
	custom := settings.Default()
	custom.Delivery.CommonDeliveryCharge = decimal.NewFromInt(500)
	// The loader returns zero settings alongside the error.
	f.svc.settings = &mockSettings{err: errors.New("redis: connection refused")}

	order, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(order.TotalAmount, "10350") {
		t.Errorf("total: expected default delivery 350, got %v", NumericToDecimal(order.TotalAmount))
	}

	f.svc.settings = &mockSettings{st: custom}
	order, err = f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(order.TotalAmount, "10500") {
		t.Errorf("total: expected custom delivery 500, got %v", NumericToDecimal(order.TotalAmount))
	}
}

func TestQuote(t *testing.T) {
	f := newFixture()

	q, err := f.svc.Quote(context.Background(), []cart.Item{
		{ProductID: f.oil.ID.String(), Quantity: 0},
		{ProductID: f.soap.ID.String(), Quantity: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Cart.Kind != cart.KindMulti {
		t.Errorf("expected multi cart")
	}
	if q.Totals.TotalQuantity != 3 {
		t.Errorf("quantity 0 should clamp to 1: total qty %d", q.Totals.TotalQuantity)
	}
	if !q.Totals.GrandTotal.Equal(decimal.NewFromInt(10850)) {
		t.Errorf("grand total: expected 10850, got %v", q.Totals.GrandTotal)
	}
	if len(f.hub.events) != 0 {
		t.Error("quote must not broadcast")
	}
}

// =====================
// Order code + retries
// =====================

func TestCreateOrder_CodeUsesMonthPrefix(t *testing.T) {
	f := newFixture()

	var gotPrefix string
	f.store.getNextOrderNumberFn = func(ctx context.Context, prefix string) (int32, error) {
		gotPrefix = prefix
		return 42, nil
	}

	order, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPrefix != "ORD202401" {
		t.Errorf("prefix: expected ORD202401, got %s", gotPrefix)
	}
	if order.OrderCode != "ORD202401042" {
		t.Errorf("order code: expected ORD202401042, got %s", order.OrderCode)
	}
}

func TestCreateOrder_RetryOnUniqueViolation(t *testing.T) {
	f := newFixture()

	createCallCount := 0
	create := f.store.createOrderFn
	f.store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		createCallCount++
		if createCallCount == 1 {
			// First attempt: unique constraint violation
			return database.Order{}, &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "orders_order_code_key",
			}
		}
		return create(ctx, arg)
	}

	// GetNextOrderNumber should be called twice (once per attempt)
	orderNumCallCount := 0
	f.store.getNextOrderNumberFn = func(ctx context.Context, prefix string) (int32, error) {
		orderNumCallCount++
		return int32(orderNumCallCount), nil
	}

	order, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if createCallCount != 2 {
		t.Errorf("expected 2 CreateOrder calls (1 fail + 1 success), got %d", createCallCount)
	}
	if orderNumCallCount != 2 {
		t.Errorf("expected 2 GetNextOrderNumber calls, got %d", orderNumCallCount)
	}
	if order.OrderCode != "ORD202401002" {
		t.Errorf("expected second code ORD202401002, got %s", order.OrderCode)
	}
	if len(f.hub.events) != 1 {
		t.Errorf("expected exactly one broadcast, got %d", len(f.hub.events))
	}
}

func TestCreateOrder_RetryExhausted(t *testing.T) {
	f := newFixture()

	// Always return unique violation
	f.store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		return database.Order{}, &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "orders_order_code_key",
		}
	}

	_, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if !strings.Contains(err.Error(), "create order") {
		t.Errorf("expected 'create order' in error message, got: %v", err)
	}
	if len(f.hub.events) != 0 {
		t.Error("failed create must not broadcast")
	}
}

func TestCreateOrder_NonUniqueErrorNotRetried(t *testing.T) {
	f := newFixture()

	callCount := 0
	f.store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		callCount++
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "some_other_key"}
	}

	_, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("other constraint errors should not retry: expected 1 call, got %d", callCount)
	}
}

func TestCreateOrder_BeginTxError(t *testing.T) {
	f := newFixture()
	f.svc.pool = &mockTxBeginner{err: errors.New("pool closed")}

	_, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("expected begin tx error, got: %v", err)
	}
}

func TestCreateOrder_CommitError(t *testing.T) {
	f := newFixture()
	f.tx.commitErr = errors.New("commit failed")

	_, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err == nil || !strings.Contains(err.Error(), "commit tx") {
		t.Fatalf("expected commit tx error, got: %v", err)
	}
	if len(f.hub.events) != 0 {
		t.Error("uncommitted order must not broadcast")
	}
}

// =====================
// Broadcast
// =====================

func TestCreateOrder_BroadcastsToAdmins(t *testing.T) {
	f := newFixture()

	order, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.hub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.hub.events))
	}
	if f.hub.events[0].Type != "order.created" {
		t.Errorf("event type: got %s", f.hub.events[0].Type)
	}
	if len(f.hub.rooms[0]) != 1 || f.hub.rooms[0][0] != ws.RoomAdmin {
		t.Errorf("rooms: expected [admin], got %v", f.hub.rooms[0])
	}
	if !strings.Contains(string(f.hub.events[0].Payload), order.OrderCode) {
		t.Errorf("payload should carry the order code: %s", f.hub.events[0].Payload)
	}
}

func TestCreateOrder_NilHub(t *testing.T) {
	f := newFixture()
	f.svc.hub = nil

	if _, err := f.svc.CreateOrder(context.Background(), basicReq(cart.Item{ProductID: f.oil.ID.String(), Quantity: 1})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
