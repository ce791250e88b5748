package cart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nirvaan-oms/api/internal/pricing"
	"github.com/shopspring/decimal"
)

// FallbackUnitPrice prices a decoded line whose product is gone from the catalog.
var FallbackUnitPrice = decimal.NewFromInt(1000)

// Record is the flat order representation stored in the orders table.
type Record struct {
	ProductID   string
	ProductName string
	Quantity    string
	Notes       string
}

// Source identifies which decode strategy produced the lines.
type Source string

const (
	SourceSingle          Source = "single"
	SourceNotesProducts   Source = "notes.products"
	SourceNotesQuantities Source = "notes.quantities"
	SourceQuantity        Source = "quantity"
	SourceNames           Source = "names"
)

// PriceSource identifies where a decoded unit price came from.
type PriceSource string

const (
	PriceStored   PriceSource = "stored"
	PriceCatalog  PriceSource = "catalog"
	PriceFallback PriceSource = "fallback"
)

// Line is one decoded product line with a resolved unit price.
type Line struct {
	ProductID   string
	Name        string
	Quantity    int
	UnitPrice   decimal.Decimal
	PriceSource PriceSource
}

// Decoded is the display form of an order's products.
type Decoded struct {
	Kind   Kind
	Source Source
	Lines  []Line
}

type notesBlob struct {
	ProductIDs string          `json:"product_ids,omitempty"`
	Quantities json.RawMessage `json:"quantities,omitempty"`
	Products   []notesProduct  `json:"products,omitempty"`
}

type notesProduct struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type wireItem struct {
	ID       string          `json:"id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Encode flattens c into record fields. Product names and the per-line price
// snapshot come from catalog.
func Encode(c Cart, catalog pricing.Catalog) (Record, error) {
	if len(c.Items) == 0 {
		return Record{}, ErrEmptyCart
	}

	if c.Kind == KindSingle {
		it := c.Items[0]
		return Record{
			ProductID:   it.ProductID,
			ProductName: nameFor(catalog, it.ProductID),
			Quantity:    strconv.Itoa(it.Quantity),
		}, nil
	}

	ids := make([]string, len(c.Items))
	names := make([]string, len(c.Items))
	products := make([]notesProduct, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
		names[i] = nameFor(catalog, it.ProductID)
		products[i] = notesProduct{
			ID:       it.ProductID,
			Name:     names[i],
			Quantity: decimal.NewFromInt(int64(it.Quantity)),
			Price:    catalog[it.ProductID].Price,
		}
	}

	qty, err := json.Marshal(c.Items)
	if err != nil {
		return Record{}, fmt.Errorf("marshal quantities: %w", err)
	}
	quantities, err := json.Marshal(string(qty))
	if err != nil {
		return Record{}, fmt.Errorf("marshal quantities string: %w", err)
	}
	notes, err := json.Marshal(notesBlob{
		ProductIDs: strings.Join(ids, ","),
		Quantities: quantities,
		Products:   products,
	})
	if err != nil {
		return Record{}, fmt.Errorf("marshal notes: %w", err)
	}

	return Record{
		ProductID:   strings.Join(ids, ","),
		ProductName: strings.Join(names, ", "),
		Quantity:    string(qty),
		Notes:       string(notes),
	}, nil
}

// IsMulti reports whether r holds more than one product. Product IDs never
// contain commas, so a set product_id decides on its own. Product names may,
// and are only consulted for legacy rows without a product_id.
func IsMulti(r Record) bool {
	if id := strings.TrimSpace(r.ProductID); id != "" {
		return strings.Contains(id, ",")
	}
	if strings.Contains(r.ProductName, ",") {
		return true
	}
	notes, ok := parseNotes(r.Notes)
	return ok && strings.Contains(notes.ProductIDs, ",")
}

// Decode expands r into priced lines. It never fails: each strategy that
// cannot parse falls through to the next, ending with one unit per named
// product.
func Decode(r Record, catalog pricing.Catalog) Decoded {
	res := newResolver(catalog)
	if !IsMulti(r) {
		return decodeSingle(r, res)
	}

	notes, hasNotes := parseNotes(r.Notes)
	names := splitList(r.ProductName)
	ids := splitList(r.ProductID)
	if len(ids) < 2 && hasNotes && notes.ProductIDs != "" {
		ids = splitList(notes.ProductIDs)
	}

	if hasNotes && len(notes.Products) > 0 {
		lines := make([]Line, len(notes.Products))
		for i, p := range notes.Products {
			lines[i] = res.line(p.ID, p.Name, pricing.QuantityFromDecimal(p.Quantity), p.Price)
		}
		return Decoded{Kind: KindMulti, Source: SourceNotesProducts, Lines: lines}
	}

	if hasNotes {
		if items, ok := parseItems(notes.Quantities); ok {
			return Decoded{Kind: KindMulti, Source: SourceNotesQuantities, Lines: zipLines(res, names, ids, items)}
		}
	}

	if items, ok := parseItems(json.RawMessage(r.Quantity)); ok {
		return Decoded{Kind: KindMulti, Source: SourceQuantity, Lines: zipLines(res, names, ids, items)}
	}

	return Decoded{Kind: KindMulti, Source: SourceNames, Lines: zipLines(res, names, ids, nil)}
}

// Cart rebuilds the logical cart from the decoded lines.
func (d Decoded) Cart() Cart {
	items := make([]Item, len(d.Lines))
	for i, l := range d.Lines {
		items[i] = Item{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return Cart{Kind: d.Kind, Items: items}
}

// PricedLines adapts the decoded lines for pricing.PriceLines.
func (d Decoded) PricedLines() []pricing.PricedLine {
	out := make([]pricing.PricedLine, len(d.Lines))
	for i, l := range d.Lines {
		out[i] = pricing.PricedLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}
	return out
}

// Describe renders "Name x2, Other x1" for tables and exports.
func (d Decoded) Describe() string {
	parts := make([]string, len(d.Lines))
	for i, l := range d.Lines {
		parts[i] = fmt.Sprintf("%s x%d", l.Name, l.Quantity)
	}
	return strings.Join(parts, ", ")
}

func decodeSingle(r Record, res resolver) Decoded {
	id := strings.TrimSpace(r.ProductID)
	qty := parseSingleQuantity(r.Quantity)
	line := res.line(id, strings.TrimSpace(r.ProductName), qty, decimal.Zero)
	return Decoded{Kind: KindSingle, Source: SourceSingle, Lines: []Line{line}}
}

// zipLines pairs names, ids and parsed items by position. Missing quantities
// default to 1.
func zipLines(res resolver, names, ids []string, items []wireItem) []Line {
	n := len(names)
	if n == 0 {
		n = len(ids)
	}
	if n == 0 {
		n = len(items)
	}
	lines := make([]Line, n)
	for i := 0; i < n; i++ {
		var id, name string
		qty := 1
		if i < len(items) {
			id = items[i].ID
			qty = pricing.QuantityFromDecimal(items[i].Quantity)
		}
		if id == "" && i < len(ids) {
			id = ids[i]
		}
		if i < len(names) {
			name = names[i]
		}
		lines[i] = res.line(id, name, qty, decimal.Zero)
	}
	return lines
}

func parseNotes(s string) (notesBlob, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return notesBlob{}, false
	}
	var n notesBlob
	if err := json.Unmarshal([]byte(s), &n); err != nil {
		return notesBlob{}, false
	}
	return n, true
}

// parseItems accepts a JSON array of {id, quantity} or a JSON string that
// itself holds such an array.
func parseItems(raw json.RawMessage) ([]wireItem, bool) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, false
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, false
		}
		raw = json.RawMessage(strings.TrimSpace(inner))
	}
	var items []wireItem
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil, false
	}
	return items, true
}

func parseSingleQuantity(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return pricing.ClampQuantity(n)
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return pricing.QuantityFromDecimal(d)
	}
	if items, ok := parseItems(json.RawMessage(s)); ok {
		total := 0
		for _, it := range items {
			total += pricing.QuantityFromDecimal(it.Quantity)
		}
		return pricing.ClampQuantity(total)
	}
	return 1
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nameFor(catalog pricing.Catalog, id string) string {
	if p, ok := catalog[id]; ok && p.Name != "" {
		return p.Name
	}
	return id
}

type resolver struct {
	byID   pricing.Catalog
	byName map[string]pricing.Product
}

func newResolver(catalog pricing.Catalog) resolver {
	byName := make(map[string]pricing.Product, len(catalog))
	for _, p := range catalog {
		byName[strings.ToLower(strings.TrimSpace(p.Name))] = p
	}
	return resolver{byID: catalog, byName: byName}
}

func (r resolver) lookup(id, name string) (pricing.Product, bool) {
	if id != "" {
		if p, ok := r.byID[id]; ok {
			return p, true
		}
	}
	if name != "" {
		if p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
			return p, true
		}
	}
	return pricing.Product{}, false
}

// line resolves name and price for a decoded entry. A positive stored price
// wins over the catalog.
func (r resolver) line(id, name string, qty int, stored decimal.Decimal) Line {
	l := Line{
		ProductID: strings.TrimSpace(id),
		Name:      strings.TrimSpace(name),
		Quantity:  pricing.ClampQuantity(qty),
	}
	p, found := r.lookup(l.ProductID, l.Name)
	if found {
		if l.ProductID == "" {
			l.ProductID = p.ID
		}
		if l.Name == "" {
			l.Name = p.Name
		}
	}
	if l.Name == "" {
		l.Name = l.ProductID
	}

	switch {
	case stored.IsPositive():
		l.UnitPrice, l.PriceSource = stored, PriceStored
	case found:
		l.UnitPrice, l.PriceSource = p.Price, PriceCatalog
	default:
		l.UnitPrice, l.PriceSource = FallbackUnitPrice, PriceFallback
	}
	return l
}
