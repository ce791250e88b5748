package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nirvaan-oms/api/internal/cart"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/enum"
	"github.com/nirvaan-oms/api/internal/logger"
	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/nirvaan-oms/api/internal/settings"
	"github.com/nirvaan-oms/api/internal/ws"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// OrderCodePrefix starts every human-readable order code.
const OrderCodePrefix = "ORD"

// Errors returned by the order service.
var (
	ErrFullNameRequired   = errors.New("fullName is required")
	ErrAddressRequired    = errors.New("address is required")
	ErrMobileRequired     = errors.New("mobile is required")
	ErrInvalidMobile      = errors.New("mobile must be 9 to 15 digits")
	ErrInvalidProductID   = errors.New("invalid product_id")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, prefix string) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CatalogStore resolves the products a cart refers to.
type CatalogStore interface {
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Product, error)
}

// SettingsLoader supplies the current delivery pricing.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Broadcaster pushes events to connected clients. Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(event ws.Event, rooms ...ws.Room)
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	FullName string
	Address  string
	Mobile   string
	Mobile2  string
	Items    []cart.Item
}

// Quote is a priced cart, before anything is written.
type Quote struct {
	Cart    cart.Cart
	Catalog pricing.Catalog
	Totals  pricing.Totals
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	catalog  CatalogStore
	settings SettingsLoader
	hub      Broadcaster
	now      func() time.Time
}

// NewOrderService creates a new OrderService. hub may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, catalog CatalogStore, settings SettingsLoader, hub Broadcaster) *OrderService {
	return &OrderService{
		pool:     pool,
		newStore: newStore,
		catalog:  catalog,
		settings: settings,
		hub:      hub,
		now:      time.Now,
	}
}

// Quote prices items against the live catalog and delivery settings.
func (s *OrderService) Quote(ctx context.Context, items []cart.Item) (*Quote, error) {
	c, err := cart.New(items)
	if err != nil {
		return nil, err
	}
	for i, it := range c.Items {
		u, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProductID, it.ProductID)
		}
		c.Items[i].ProductID = u.String()
	}

	catalog, err := s.loadCatalog(ctx, c)
	if err != nil {
		return nil, err
	}

	delivery := s.deliverySettings(ctx)
	return &Quote{
		Cart:    c,
		Catalog: catalog,
		Totals:  pricing.Calculate(c.Lines(), catalog, delivery),
	}, nil
}

// CreateOrder validates, prices, and stores an order, then notifies admins.
// Retries up to maxOrderNumberRetries times on order_code unique constraint
// violations (concurrent transactions reading the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	req, err := normalizeCustomer(req)
	if err != nil {
		return database.Order{}, err
	}

	quote, err := s.Quote(ctx, req.Items)
	if err != nil {
		return database.Order{}, err
	}

	rec, err := cart.Encode(quote.Cart, quote.Catalog)
	if err != nil {
		return database.Order{}, fmt.Errorf("encode cart: %w", err)
	}

	params := database.CreateOrderParams{
		FullName:    req.FullName,
		Address:     req.Address,
		Mobile:      req.Mobile,
		Mobile2:     optionalText(req.Mobile2),
		ProductID:   rec.ProductID,
		ProductName: rec.ProductName,
		Quantity:    rec.Quantity,
		Status:      database.OrderStatusReceived,
		TotalAmount: decimalToNumeric(quote.Totals.GrandTotal),
		Notes:       optionalText(rec.Notes),
	}

	// Retry loop: handles order_code unique constraint race condition.
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		order, err := s.createOrderTx(ctx, params)
		if err == nil {
			s.publish(enum.EventOrderCreated, NewOrderView(order), ws.RoomAdmin)
			return order, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return database.Order{}, err
	}
	return database.Order{}, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order code (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_code_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, params database.CreateOrderParams) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	prefix := OrderCodePrefix + s.now().Format("200601")
	nextNum, err := store.GetNextOrderNumber(ctx, prefix)
	if err != nil {
		return database.Order{}, fmt.Errorf("get next order number: %w", err)
	}
	params.OrderCode = fmt.Sprintf("%s%03d", prefix, nextNum)

	order, err := store.CreateOrder(ctx, params)
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// loadCatalog fetches every product in c and rejects unknown or unavailable
// ones. Item IDs must already be canonical UUIDs.
func (s *OrderService) loadCatalog(ctx context.Context, c cart.Cart) (pricing.Catalog, error) {
	ids := c.ProductIDs()
	uuids := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		uuids[i] = uuid.MustParse(id)
	}

	rows, err := s.catalog.ListProductsByIDs(ctx, uuids)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	byID := make(map[uuid.UUID]database.Product, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	products := make([]pricing.Product, 0, len(uuids))
	for _, u := range uuids {
		p, ok := byID[u]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, u)
		}
		if p.Status != database.ProductStatusAvailable {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, p.Name)
		}
		products = append(products, ProductForPricing(p))
	}
	return pricing.NewCatalog(products), nil
}

func (s *OrderService) deliverySettings(ctx context.Context) pricing.DeliverySettings {
	if s.settings == nil {
		return pricing.DefaultDeliverySettings()
	}
	st, err := s.settings.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("using default delivery settings")
		return pricing.DefaultDeliverySettings()
	}
	return st.Delivery
}

func (s *OrderService) publish(eventType string, payload any, rooms ...ws.Room) {
	publish(s.hub, eventType, payload, rooms...)
}

func publish(hub Broadcaster, eventType string, payload any, rooms ...ws.Room) {
	if hub == nil {
		return
	}
	ev, err := ws.NewEvent(eventType, payload)
	if err != nil {
		logger.Error().Err(err).Str("event", eventType).Msg("build event")
		return
	}
	hub.Broadcast(ev, rooms...)
}

// --- Helpers ---

func normalizeCustomer(req CreateOrderRequest) (CreateOrderRequest, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Address = strings.TrimSpace(req.Address)
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Mobile2 = strings.TrimSpace(req.Mobile2)

	if req.FullName == "" {
		return req, ErrFullNameRequired
	}
	if req.Address == "" {
		return req, ErrAddressRequired
	}
	if req.Mobile == "" {
		return req, ErrMobileRequired
	}
	if !validMobile(req.Mobile) {
		return req, ErrInvalidMobile
	}
	if req.Mobile2 != "" && !validMobile(req.Mobile2) {
		return req, fmt.Errorf("mobile2: %w", ErrInvalidMobile)
	}
	return req, nil
}

// validMobile accepts 9 to 15 digits with an optional leading + and spaces
// or dashes between groups.
func validMobile(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return digits >= 9 && digits <= 15
}

// ProductForPricing converts a stored product into the calculator's view.
func ProductForPricing(p database.Product) pricing.Product {
	return pricing.Product{
		ID:    p.ID.String(),
		Name:  p.Name,
		Price: NumericToDecimal(p.Price),
	}
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// NumericToDecimal converts a pgtype.Numeric, treating NULL as zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// DecimalToNumeric converts d to a two-place pgtype.Numeric.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return decimalToNumeric(d)
}
