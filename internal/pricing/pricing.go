// Package pricing computes order totals: product subtotal, the flat delivery
// charge, and the bulk surcharge applied per block of units above the
// threshold.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// BulkThreshold is the total quantity at which the delivery charge is waived
// and the per-block surcharge starts counting.
const BulkThreshold = 15

// MaxQuantity caps a single line and a whole cart.
const MaxQuantity = 10000

var (
	DefaultCommonDeliveryCharge = decimal.NewFromInt(350)
	DefaultExtraAddOnPrice      = decimal.NewFromInt(1000)
)

var ErrNegativeAmount = errors.New("amount must be >= 0")

// DeliverySettings drives the delivery charge and surcharge.
type DeliverySettings struct {
	CommonDeliveryCharge decimal.Decimal
	ExtraAddOnPrice      decimal.Decimal
	EditMode             bool
}

// DefaultDeliverySettings returns 350 / 1000 / edit mode off.
func DefaultDeliverySettings() DeliverySettings {
	return DeliverySettings{
		CommonDeliveryCharge: DefaultCommonDeliveryCharge,
		ExtraAddOnPrice:      DefaultExtraAddOnPrice,
	}
}

// Validate rejects negative amounts.
func (s DeliverySettings) Validate() error {
	if s.CommonDeliveryCharge.IsNegative() || s.ExtraAddOnPrice.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Product is the catalog view the calculator needs.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Catalog indexes products by ID.
type Catalog map[string]Product

// NewCatalog builds a Catalog. Later duplicates win.
func NewCatalog(products []Product) Catalog {
	c := make(Catalog, len(products))
	for _, p := range products {
		c[p.ID] = p
	}
	return c
}

// Line is a cart selection: product ID and requested quantity.
type Line struct {
	ProductID string
	Quantity  int
}

// PricedLine is a selection whose unit price is already known.
type PricedLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Totals is the result of a pricing run.
type Totals struct {
	Subtotal      decimal.Decimal
	TotalQuantity int
	DeliveryTotal decimal.Decimal
	ExtraCharge   decimal.Decimal
	GrandTotal    decimal.Decimal
}

// Calculate prices lines against the catalog. Lines whose product is not in
// the catalog are skipped.
func Calculate(lines []Line, catalog Catalog, s DeliverySettings) Totals {
	priced := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		p, ok := catalog[l.ProductID]
		if !ok {
			continue
		}
		priced = append(priced, PricedLine{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  l.Quantity,
			UnitPrice: p.Price,
		})
	}
	return PriceLines(priced, s)
}

// PriceLines computes totals for lines that carry their own unit price.
// An empty input yields all-zero totals.
func PriceLines(lines []PricedLine, s DeliverySettings) Totals {
	if len(lines) == 0 {
		return Totals{
			Subtotal:      decimal.Zero,
			DeliveryTotal: decimal.Zero,
			ExtraCharge:   decimal.Zero,
			GrandTotal:    decimal.Zero,
		}
	}

	subtotal := decimal.Zero
	totalQty := 0
	for _, l := range lines {
		qty := ClampQuantity(l.Quantity)
		price := nonNegative(l.UnitPrice)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		totalQty += qty
	}

	delivery := DeliveryCharge(totalQty, s)
	extra := ExtraCharge(totalQty, s)

	return Totals{
		Subtotal:      subtotal,
		TotalQuantity: totalQty,
		DeliveryTotal: delivery,
		ExtraCharge:   extra,
		GrandTotal:    subtotal.Add(delivery).Add(extra),
	}
}

// DeliveryCharge is the flat charge below the bulk threshold, zero at or above it.
func DeliveryCharge(totalQty int, s DeliverySettings) decimal.Decimal {
	if totalQty < BulkThreshold {
		return nonNegative(s.CommonDeliveryCharge)
	}
	return decimal.Zero
}

// ExtraBlocks is ceil(max(0, totalQty-15) / 15).
func ExtraBlocks(totalQty int) int {
	over := totalQty - BulkThreshold
	if over <= 0 {
		return 0
	}
	return (over + BulkThreshold - 1) / BulkThreshold
}

// ExtraCharge is ExtraBlocks × extraAddOnPrice.
func ExtraCharge(totalQty int, s DeliverySettings) decimal.Decimal {
	blocks := ExtraBlocks(totalQty)
	if blocks == 0 {
		return decimal.Zero
	}
	return nonNegative(s.ExtraAddOnPrice).Mul(decimal.NewFromInt(int64(blocks)))
}

// ClampQuantity raises anything below 1 to 1 and lowers anything above
// MaxQuantity to MaxQuantity.
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return min(q, MaxQuantity)
}

// QuantityFromDecimal truncates d to a clamped quantity. Values too large for
// an int clamp to MaxQuantity instead of wrapping.
func QuantityFromDecimal(d decimal.Decimal) int {
	if d.GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		return MaxQuantity
	}
	return ClampQuantity(int(d.IntPart()))
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
