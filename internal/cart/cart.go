// Package cart translates between a logical cart of products and the flat
// order record fields (product_id, product_name, quantity, notes) that the
// order store and the clients exchange.
package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nirvaan-oms/api/internal/pricing"
)

// Kind tags a cart as single- or multi-product.
type Kind int

const (
	KindSingle Kind = iota
	KindMulti
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMulti:
		return "multi"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyCart        = errors.New("cart has no items")
	ErrMissingProductID = errors.New("product id is required")
	ErrCommaInProductID = errors.New("product id must not contain a comma")
	ErrQuantityTooLarge = fmt.Errorf("quantity must not exceed %d", pricing.MaxQuantity)
)

// Item is one product selection.
type Item struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"quantity"`
}

// Cart is the tagged cart variant. Single carts hold exactly one item.
type Cart struct {
	Kind  Kind
	Items []Item
}

// New builds a cart from selections. One item gives a single cart, more give
// a multi cart. Quantities below 1 are raised to 1. Each item and the cart
// as a whole may hold at most pricing.MaxQuantity units.
func New(items []Item) (Cart, error) {
	if len(items) == 0 {
		return Cart{}, ErrEmptyCart
	}
	out := make([]Item, len(items))
	total := 0
	for i, it := range items {
		id := strings.TrimSpace(it.ProductID)
		if id == "" {
			return Cart{}, fmt.Errorf("item[%d]: %w", i, ErrMissingProductID)
		}
		if strings.Contains(id, ",") {
			return Cart{}, fmt.Errorf("item[%d]: %w", i, ErrCommaInProductID)
		}
		if it.Quantity > pricing.MaxQuantity {
			return Cart{}, fmt.Errorf("item[%d]: %w", i, ErrQuantityTooLarge)
		}
		out[i] = Item{ProductID: id, Quantity: pricing.ClampQuantity(it.Quantity)}
		total += out[i].Quantity
		if total > pricing.MaxQuantity {
			return Cart{}, fmt.Errorf("cart total: %w", ErrQuantityTooLarge)
		}
	}
	kind := KindSingle
	if len(out) > 1 {
		kind = KindMulti
	}
	return Cart{Kind: kind, Items: out}, nil
}

// Single builds a one-product cart.
func Single(productID string, qty int) (Cart, error) {
	return New([]Item{{ProductID: productID, Quantity: qty}})
}

// Lines converts the cart into pricing lines.
func (c Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, len(c.Items))
	for i, it := range c.Items {
		lines[i] = pricing.Line{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return lines
}

// ProductIDs returns the distinct product IDs in cart order.
func (c Cart) ProductIDs() []string {
	seen := make(map[string]bool, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		ids = append(ids, it.ProductID)
	}
	return ids
}

// TotalQuantity sums item quantities.
func (c Cart) TotalQuantity() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
