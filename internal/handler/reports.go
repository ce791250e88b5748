package handler

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nirvaan-oms/api/internal/cart"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/logger"
	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/nirvaan-oms/api/internal/service"
	"github.com/nirvaan-oms/api/internal/settings"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ReportsStore defines the database methods needed by dashboard and
// analytics handlers. Satisfied by *database.Queries; narrow interface for
// testability.
type ReportsStore interface {
	CountOrdersByStatus(ctx context.Context) ([]database.CountOrdersByStatusRow, error)
	CountOrdersCreatedSince(ctx context.Context, since pgtype.Timestamptz) (int64, error)
	DailyOrderTotals(ctx context.Context, since pgtype.Timestamptz) ([]database.DailyOrderTotalsRow, error)
	MonthlyOrderTotals(ctx context.Context, since pgtype.Timestamptz) ([]database.MonthlyOrderTotalsRow, error)
	SumRevenueByStatus(ctx context.Context, status database.OrderStatus) (pgtype.Numeric, error)
	ListOrdersInRange(ctx context.Context, arg database.ListOrdersInRangeParams) ([]database.Order, error)
	ListProducts(ctx context.Context) ([]database.Product, error)
}

// ReportsHandler handles dashboard and analytics endpoints.
type ReportsHandler struct {
	store    ReportsStore
	settings SettingsLoader
	now      func() time.Time
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore, settings SettingsLoader) *ReportsHandler {
	return &ReportsHandler{store: store, settings: settings, now: time.Now}
}

// RegisterRoutes registers the admin report endpoints.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/stats", h.DashboardStats)
	r.Get("/analytics", h.Analytics)
	r.Get("/analytics/revenue", h.Revenue)
	r.Get("/analytics/top-products", h.TopProducts)
}

// --- Response types ---

// dashboardResponse is flat: the dashboard cards read the counters from the
// top level.
type dashboardResponse struct {
	Success      bool  `json:"success"`
	Total        int64 `json:"total"`
	Conform      int64 `json:"conform"`
	Received     int64 `json:"received"`
	Issued       int64 `json:"issued"`
	Courier      int64 `json:"courier"`
	Today        int64 `json:"today"`
	Monthly      int64 `json:"monthly"`
	TodayInRange int64 `json:"today_in_range"`
}

type statusSlice struct {
	Status string `json:"status"`
	Name   string `json:"name"`
	Value  int64  `json:"value"`
	Color  string `json:"color"`
}

type seriesPoint struct {
	Period     string          `json:"period"`
	OrderCount int64           `json:"orderCount"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type analyticsResponse struct {
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalOrders  int64           `json:"totalOrders"`
	StatusData   []statusSlice   `json:"statusData"`
	Daily        []seriesPoint   `json:"daily"`
	Monthly      []seriesPoint   `json:"monthly"`
}

type productSalesResponse struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int64           `json:"quantity_sold"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type statusMeta struct {
	status database.OrderStatus
	name   string
	color  string
}

var statusChart = []statusMeta{
	{database.OrderStatusReceived, "Received", "#3b82f6"},
	{database.OrderStatusConform, "Conform", "#8b5cf6"},
	{database.OrderStatusSended, "Issued", "#10b981"},
	{database.OrderStatusInTransit, "In Transit", "#f59e0b"},
	{database.OrderStatusDelivered, "Delivered", "#22c55e"},
	{database.OrderStatusReturned, "Returned", "#ef4444"},
}

// --- Handlers ---

// DashboardStats handles GET /dashboard/stats.
func (h *ReportsHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now()
	today := startOfDay(now)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var (
		counts       []database.CountOrdersByStatusRow
		todayCount   int64
		monthCount   int64
		todaysOrders []database.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = h.store.CountOrdersByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		todayCount, err = h.store.CountOrdersCreatedSince(gctx, timestamptz(today))
		return err
	})
	g.Go(func() (err error) {
		monthCount, err = h.store.CountOrdersCreatedSince(gctx, timestamptz(month))
		return err
	})
	g.Go(func() (err error) {
		todaysOrders, err = h.store.ListOrdersInRange(gctx, database.ListOrdersInRangeParams{
			StartDate: timestamptz(today),
			EndDate:   timestamptz(today.AddDate(0, 0, 1)),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		internalError(w, "dashboard stats", err)
		return
	}

	resp := dashboardResponse{Success: true, Today: todayCount, Monthly: monthCount}
	for _, c := range counts {
		resp.Total += c.Count
		switch c.Status {
		case database.OrderStatusConform:
			resp.Conform += c.Count
		case database.OrderStatusReceived:
			resp.Received += c.Count
		case database.OrderStatusSended:
			resp.Issued += c.Count
			resp.Courier += c.Count
		case database.OrderStatusInTransit, database.OrderStatusDelivered, database.OrderStatusReturned:
			resp.Courier += c.Count
		}
	}

	tr := h.loadSettings(ctx).TimeRange
	for _, o := range todaysOrders {
		if tr.Contains(o.CreatedAt.Time, now) {
			resp.TodayInRange++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Analytics handles GET /analytics: delivered revenue, the status
// distribution, and 7-day and 6-month series.
func (h *ReportsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now()
	dayStart := startOfDay(now).AddDate(0, 0, -6)
	monthStart := time.Date(now.Year(), now.Month()-5, 1, 0, 0, 0, 0, now.Location())

	var (
		revenue pgtype.Numeric
		counts  []database.CountOrdersByStatusRow
		daily   []database.DailyOrderTotalsRow
		monthly []database.MonthlyOrderTotalsRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		revenue, err = h.store.SumRevenueByStatus(gctx, database.OrderStatusDelivered)
		return err
	})
	g.Go(func() (err error) {
		counts, err = h.store.CountOrdersByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		daily, err = h.store.DailyOrderTotals(gctx, timestamptz(dayStart))
		return err
	})
	g.Go(func() (err error) {
		monthly, err = h.store.MonthlyOrderTotals(gctx, timestamptz(monthStart))
		return err
	})
	if err := g.Wait(); err != nil {
		internalError(w, "analytics", err)
		return
	}

	byStatus := make(map[database.OrderStatus]int64, len(counts))
	var total int64
	for _, c := range counts {
		byStatus[c.Status] += c.Count
		total += c.Count
	}
	dist := make([]statusSlice, 0, len(statusChart))
	for _, m := range statusChart {
		dist = append(dist, statusSlice{
			Status: string(m.status),
			Name:   m.name,
			Value:  byStatus[m.status],
			Color:  m.color,
		})
	}

	writeData(w, http.StatusOK, analyticsResponse{
		TotalRevenue: service.NumericToDecimal(revenue),
		TotalOrders:  total,
		StatusData:   dist,
		Daily:        dailySeries(daily, dayStart, 7),
		Monthly:      monthlySeries(monthly, monthStart, 6),
	})
}

// Revenue handles GET /analytics/revenue?period=week|month|year. Week and
// month return one point per day, year one point per month.
func (h *ReportsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}

	switch period {
	case "week", "month":
		days := 7
		if period == "month" {
			days = 30
		}
		start := startOfDay(now).AddDate(0, 0, -(days - 1))
		rows, err := h.store.DailyOrderTotals(r.Context(), timestamptz(start))
		if err != nil {
			internalError(w, "daily revenue", err)
			return
		}
		writeData(w, http.StatusOK, dailySeries(rows, start, days))
	case "year":
		start := time.Date(now.Year(), now.Month()-11, 1, 0, 0, 0, 0, now.Location())
		rows, err := h.store.MonthlyOrderTotals(r.Context(), timestamptz(start))
		if err != nil {
			internalError(w, "monthly revenue", err)
			return
		}
		writeData(w, http.StatusOK, monthlySeries(rows, start, 12))
	default:
		writeError(w, http.StatusBadRequest, "period must be week, month or year")
	}
}

// TopProducts handles GET /analytics/top-products?limit&days. Delivered
// orders are decoded line by line so multi-product carts count every product.
func (h *ReportsHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 5, 50)
	days := queryInt(r, "days", 30, 365)
	now := h.now()
	start := startOfDay(now).AddDate(0, 0, -(days - 1))

	orders, err := h.store.ListOrdersInRange(r.Context(), database.ListOrdersInRangeParams{
		Statuses:  []string{string(database.OrderStatusDelivered)},
		StartDate: timestamptz(start),
		EndDate:   timestamptz(startOfDay(now).AddDate(0, 0, 1)),
	})
	if err != nil {
		internalError(w, "list delivered orders", err)
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
	catalog := pricing.NewCatalog(catalogProducts)

	agg := make(map[string]*productSalesResponse)
	var keys []string
	for _, o := range orders {
		decoded := cart.Decode(cart.Record{
			ProductID:   o.ProductID,
			ProductName: o.ProductName,
			Quantity:    o.Quantity,
			Notes:       o.Notes.String,
		}, catalog)
		for _, l := range decoded.Lines {
			key := l.ProductID
			if key == "" {
				key = l.Name
			}
			s, ok := agg[key]
			if !ok {
				s = &productSalesResponse{ProductID: l.ProductID, ProductName: l.Name}
				agg[key] = s
				keys = append(keys, key)
			}
			s.QuantitySold += int64(l.Quantity)
			s.TotalRevenue = s.TotalRevenue.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
	}

	resp := make([]productSalesResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, *agg[k])
	}
	sort.SliceStable(resp, func(i, j int) bool {
		if c := resp[i].TotalRevenue.Cmp(resp[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return resp[i].QuantitySold > resp[j].QuantitySold
	})
	if len(resp) > limit {
		resp = resp[:limit]
	}

	writeData(w, http.StatusOK, resp)
}

// --- Helpers ---

// loadSettings never fails: the loader hands back defaults with its error.
func (h *ReportsHandler) loadSettings(ctx context.Context) settings.Settings {
	if h.settings == nil {
		return settings.Default()
	}
	st, err := h.settings.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("reports using default settings")
	}
	return st
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// queryInt reads a positive int query value, falling back to def and
// capping at ceiling.
func queryInt(r *http.Request, key string, def, ceiling int) int {
	v := def
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			v = n
		}
	}
	if v > ceiling {
		v = ceiling
	}
	return v
}

// dailySeries fills one point per day from start, zero where no row exists.
func dailySeries(rows []database.DailyOrderTotalsRow, start time.Time, days int) []seriesPoint {
	byDay := make(map[string]database.DailyOrderTotalsRow, len(rows))
	for _, row := range rows {
		if row.Day.Valid {
			byDay[row.Day.Time.Format("2006-01-02")] = row
		}
	}
	out := make([]seriesPoint, days)
	for i := range out {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		row := byDay[key]
		out[i] = seriesPoint{Period: key, OrderCount: row.OrderCount, Revenue: service.NumericToDecimal(row.Revenue)}
	}
	return out
}

// monthlySeries fills one point per month from start.
func monthlySeries(rows []database.MonthlyOrderTotalsRow, start time.Time, months int) []seriesPoint {
	byMonth := make(map[string]database.MonthlyOrderTotalsRow, len(rows))
	for _, row := range rows {
		if row.Month.Valid {
			byMonth[row.Month.Time.Format("2006-01")] = row
		}
	}
	out := make([]seriesPoint, months)
	for i := range out {
		key := start.AddDate(0, i, 0).Format("2006-01")
		row := byMonth[key]
		out[i] = seriesPoint{Period: key, OrderCount: row.OrderCount, Revenue: service.NumericToDecimal(row.Revenue)}
	}
	return out
}
