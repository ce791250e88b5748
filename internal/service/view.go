package service

import (
	"time"

	"github.com/nirvaan-oms/api/internal/database"
	"github.com/shopspring/decimal"
)

// OrderView is the wire shape of an order, shared by REST responses and
// push events.
type OrderView struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	FullName    string          `json:"fullName"`
	Address     string          `json:"address"`
	Mobile      string          `json:"mobile"`
	Mobile2     *string         `json:"mobile2"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    string          `json:"quantity"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       *string         `json:"notes"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewOrderView flattens a stored order.
func NewOrderView(o database.Order) OrderView {
	v := OrderView{
		ID:          o.ID.String(),
		OrderID:     o.OrderCode,
		FullName:    o.FullName,
		Address:     o.Address,
		Mobile:      o.Mobile,
		ProductID:   o.ProductID,
		ProductName: o.ProductName,
		Quantity:    o.Quantity,
		Status:      string(o.Status),
		TotalAmount: NumericToDecimal(o.TotalAmount),
		CreatedAt:   o.CreatedAt.Time,
		UpdatedAt:   o.UpdatedAt.Time,
	}
	if o.Mobile2.Valid {
		v.Mobile2 = &o.Mobile2.String
	}
	if o.Notes.Valid {
		v.Notes = &o.Notes.String
	}
	return v
}

// NewOrderViews flattens a list, never returning nil.
func NewOrderViews(orders []database.Order) []OrderView {
	out := make([]OrderView, len(orders))
	for i, o := range orders {
		out[i] = NewOrderView(o)
	}
	return out
}

// StatusChange is the payload of order.status_changed events.
type StatusChange struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	From      string    `json:"from"`
	Status    string    `json:"status"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderDeleted is the payload of order.deleted events.
type OrderDeleted struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
}
