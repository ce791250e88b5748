package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/export"
	"github.com/nirvaan-oms/api/internal/handler"
	"github.com/nirvaan-oms/api/internal/middleware"
	"github.com/nirvaan-oms/api/internal/orderflow"
	"github.com/xuri/excelize/v2"
)

func courierRouter(d *orderDeps) chi.Router {
	h := handler.NewCourierHandler(d.store, d.status)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		r.Use(middleware.RequireRole("courier", "admin"))
		h.RegisterRoutes(r)
	})
	return r
}

func courierOrders() []database.Order {
	day := time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)
	return []database.Order{
		makeOrder("ORD202401001", database.OrderStatusReceived, day),
		makeOrder("ORD202401002", database.OrderStatusSended, day),
		makeOrder("ORD202401003", database.OrderStatusInTransit, day.Add(time.Hour)),
		makeOrder("ORD202401004", database.OrderStatusDelivered, day.AddDate(0, 0, -3)),
	}
}

func TestCourierList_HidesReceived(t *testing.T) {
	d := newOrderDeps()
	d.store.orders = courierOrders()
	r := courierRouter(d)

	rr := sendJSON(t, r, "GET", "/courier/orders", nil, tokenFor(t, "courier"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeResponse(t, rr)["data"].([]any)
	if len(data) != 3 {
		t.Fatalf("expected 3 courier orders, got %d", len(data))
	}
	for _, o := range data {
		if o.(map[string]any)["status"] == "received" {
			t.Errorf("received order leaked into courier view: %v", o)
		}
	}
}

func TestCourierList_StatusFilter(t *testing.T) {
	d := newOrderDeps()
	d.store.orders = courierOrders()
	r := courierRouter(d)

	rr := sendJSON(t, r, "GET", "/courier/orders?status=in-transit", nil, tokenFor(t, "courier"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeResponse(t, rr)["data"].([]any)
	if len(data) != 1 || data[0].(map[string]any)["order_id"] != "ORD202401003" {
		t.Errorf("expected only ORD202401003, got %v", data)
	}

	rr = sendJSON(t, r, "GET", "/courier/orders?status=received", nil, tokenFor(t, "courier"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for status outside the courier view, got %d", rr.Code)
	}
}

func TestCourierList_AdminAllowed(t *testing.T) {
	d := newOrderDeps()
	r := courierRouter(d)

	rr := sendJSON(t, r, "GET", "/courier/orders", nil, tokenFor(t, "admin"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rr.Code)
	}
	rr = sendJSON(t, r, "GET", "/courier/orders", nil, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}
}

func TestCourierUpdateStatus_PassesCourierRole(t *testing.T) {
	d := newOrderDeps()
	o := makeOrder("ORD202401002", database.OrderStatusInTransit, time.Now())
	d.status.updateFn = func(_ context.Context, _ orderflow.Role, _ uuid.UUID, target string) (database.Order, bool, error) {
		if target != "in-transit" {
			t.Errorf("expected target in-transit, got %q", target)
		}
		return o, true, nil
	}
	r := courierRouter(d)

	rr := sendJSON(t, r, "PUT", "/courier/"+o.ID.String()+"/status", map[string]string{"status": "in-transit"}, tokenFor(t, "courier"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if d.status.gotRole != orderflow.RoleCourier {
		t.Errorf("expected courier role, got %q", d.status.gotRole)
	}
	data := decodeResponse(t, rr)["data"].(map[string]any)
	if data["status"] != "in-transit" {
		t.Errorf("expected in-transit, got %v", data["status"])
	}
}

func TestCourierExport(t *testing.T) {
	d := newOrderDeps()
	d.store.orders = courierOrders()
	r := courierRouter(d)

	rr := sendJSON(t, r, "GET", "/courier/orders/export?from=2024-01-15&to=2024-01-15", nil, tokenFor(t, "courier"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("expected xlsx content type, got %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "courier-orders-") {
		t.Errorf("unexpected content disposition %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	// header, two courier-visible orders on the 15th, footer
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d: %v", len(rows), rows)
	}
	if rows[1][0] != "ORD202401002" || rows[2][0] != "ORD202401003" {
		t.Errorf("unexpected order rows: %v", rows[1:3])
	}

	if got := d.store.lastRng.StartDate.Time; !got.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)) {
		t.Errorf("unexpected start %v", got)
	}
	if got := d.store.lastRng.EndDate.Time; !got.Equal(time.Date(2024, 1, 16, 0, 0, 0, 0, time.Local)) {
		t.Errorf("expected exclusive end on the next day, got %v", got)
	}
}

func TestCourierExport_BadDates(t *testing.T) {
	d := newOrderDeps()
	r := courierRouter(d)

	for _, q := range []string{"from=15-01-2024", "to=yesterday", "from=2024-02-01&to=2024-01-01"} {
		rr := sendJSON(t, r, "GET", "/courier/orders/export?"+q, nil, tokenFor(t, "courier"))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rr.Code)
		}
	}
}
