// Package tracker keeps a local, continuously reconciled copy of the courier
// order list. Status changes are applied optimistically and marked pending
// until the server answers; polls and push events never overwrite a pending
// record.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nirvaan-oms/api/internal/client"
	"github.com/nirvaan-oms/api/internal/enum"
	"github.com/nirvaan-oms/api/internal/orderflow"
	"github.com/nirvaan-oms/api/internal/service"
	"github.com/nirvaan-oms/api/internal/ws"
)

var (
	ErrNotFound   = errors.New("order not in cache")
	ErrPending    = errors.New("order has a status update in flight")
	ErrSameStatus = orderflow.ErrSameStatus
)

// Source says what produced a Change.
type Source string

const (
	SourceOptimistic Source = "optimistic"
	SourceServer     Source = "server"
	SourcePoll       Source = "poll"
	SourcePush       Source = "push"
	SourceRollback   Source = "rollback"
)

// ChangeKind classifies a Change.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeStatus  ChangeKind = "status"
	ChangeRemoved ChangeKind = "removed"
)

// Change is one visible mutation of the cache.
type Change struct {
	Kind    ChangeKind
	Source  Source
	ID      string
	OrderID string
	From    string
	To      string
}

// Record is a cached order. While Pending, Order.Status holds the optimistic
// value and Previous the status to restore on failure.
type Record struct {
	Order    client.Order
	Pending  bool
	Previous string
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records map[string]*Record
	visible map[string]bool
}

// NewCache creates a cache that only holds orders in one of the visible
// statuses. With none given every status is kept.
func NewCache(visible ...orderflow.Status) *Cache {
	c := &Cache{records: make(map[string]*Record)}
	if len(visible) > 0 {
		c.visible = make(map[string]bool, len(visible))
		for _, s := range visible {
			c.visible[string(s)] = true
		}
	}
	return c
}

// NewCourierCache holds the statuses of the courier portal.
func NewCourierCache() *Cache {
	return NewCache(orderflow.CourierStatuses()...)
}

func (c *Cache) keeps(status string) bool {
	return c.visible == nil || c.visible[status]
}

// Get returns a copy of the record for id.
func (c *Cache) Get(id string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len is the number of cached orders.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// List returns every record, newest first.
func (c *Cache) List() []Record {
	c.mu.RLock()
	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, *rec)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Order, out[j].Order
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Begin applies target optimistically and marks the record pending. It
// fails without touching the record when the order is unknown, already
// pending, already in target, or when role may not make the transition.
func (c *Cache) Begin(id string, role orderflow.Role, target orderflow.Status) (Change, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok {
		return Change{}, ErrNotFound
	}
	if rec.Pending {
		return Change{}, ErrPending
	}
	if _, err := orderflow.Resolve(role, orderflow.Status(rec.Order.Status), target); err != nil {
		return Change{}, err
	}

	from := rec.Order.Status
	rec.Previous = from
	rec.Pending = true
	rec.Order.Status = string(target)
	return Change{Kind: ChangeStatus, Source: SourceOptimistic, ID: id, OrderID: rec.Order.OrderID, From: from, To: string(target)}, nil
}

// Confirm replaces a pending record with the server's copy. The returned
// change is set only when the server's status differs from the optimistic
// one.
func (c *Cache) Confirm(id string, order client.Order) (Change, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok {
		// Deleted while the update was in flight.
		return Change{}, false
	}
	from := rec.Order.Status
	if !c.keeps(order.Status) {
		delete(c.records, id)
		return Change{Kind: ChangeRemoved, Source: SourceServer, ID: id, OrderID: order.OrderID, From: from, To: order.Status}, true
	}

	rec.Order = order
	rec.Pending = false
	rec.Previous = ""
	if from == order.Status {
		return Change{}, false
	}
	return Change{Kind: ChangeStatus, Source: SourceServer, ID: id, OrderID: order.OrderID, From: from, To: order.Status}, true
}

// Rollback restores the status a pending record had before Begin.
func (c *Cache) Rollback(id string) (Change, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[id]
	if !ok || !rec.Pending {
		return Change{}, false
	}
	from := rec.Order.Status
	rec.Order.Status = rec.Previous
	rec.Pending = false
	rec.Previous = ""
	return Change{Kind: ChangeStatus, Source: SourceRollback, ID: id, OrderID: rec.Order.OrderID, From: from, To: rec.Order.Status}, true
}

// Reconcile makes the cache match an authoritative snapshot. Pending records
// keep their optimistic status and survive even when absent from the
// snapshot; everything else follows the server.
func (c *Cache) Reconcile(snapshot []client.Order) []Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	var changes []Change
	seen := make(map[string]bool, len(snapshot))
	for _, o := range snapshot {
		if !c.keeps(o.Status) {
			continue
		}
		seen[o.ID] = true

		rec, ok := c.records[o.ID]
		if !ok {
			c.records[o.ID] = &Record{Order: o}
			changes = append(changes, Change{Kind: ChangeAdded, Source: SourcePoll, ID: o.ID, OrderID: o.OrderID, To: o.Status})
			continue
		}
		if rec.Pending {
			optimistic := rec.Order.Status
			rec.Order = o
			rec.Order.Status = optimistic
			continue
		}
		from := rec.Order.Status
		rec.Order = o
		if from != o.Status {
			changes = append(changes, Change{Kind: ChangeStatus, Source: SourcePoll, ID: o.ID, OrderID: o.OrderID, From: from, To: o.Status})
		}
	}

	var gone []string
	for id, rec := range c.records {
		if !seen[id] && !rec.Pending {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	for _, id := range gone {
		rec := c.records[id]
		delete(c.records, id)
		changes = append(changes, Change{Kind: ChangeRemoved, Source: SourcePoll, ID: id, OrderID: rec.Order.OrderID, From: rec.Order.Status})
	}
	return changes
}

// ApplyEvent applies one push event, last write wins. Status changes for
// pending records are ignored; the in-flight update settles them. It
// returns ErrNotFound when the event names an order the cache has never
// seen, so the caller can reload.
func (c *Cache) ApplyEvent(ev ws.Event) ([]Change, error) {
	switch ev.Type {
	case enum.EventOrderStatusChanged:
		var p service.StatusChange
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return c.applyStatus(p)

	case enum.EventOrderCreated:
		var o client.Order
		if err := json.Unmarshal(ev.Payload, &o); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return c.applyCreated(o), nil

	case enum.EventOrderDeleted:
		var p service.OrderDeleted
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return c.applyDeleted(p), nil
	}
	return nil, nil
}

func (c *Cache) applyStatus(p service.StatusChange) ([]Change, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[p.ID]
	if !ok {
		if c.keeps(p.Status) {
			return nil, ErrNotFound
		}
		return nil, nil
	}
	if rec.Pending || rec.Order.Status == p.Status {
		return nil, nil
	}

	from := rec.Order.Status
	if !c.keeps(p.Status) {
		delete(c.records, p.ID)
		return []Change{{Kind: ChangeRemoved, Source: SourcePush, ID: p.ID, OrderID: rec.Order.OrderID, From: from, To: p.Status}}, nil
	}
	rec.Order.Status = p.Status
	if !p.UpdatedAt.IsZero() {
		rec.Order.UpdatedAt = p.UpdatedAt
	}
	return []Change{{Kind: ChangeStatus, Source: SourcePush, ID: p.ID, OrderID: rec.Order.OrderID, From: from, To: p.Status}}, nil
}

func (c *Cache) applyCreated(o client.Order) []Change {
	if !c.keeps(o.Status) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[o.ID]; ok {
		return nil
	}
	c.records[o.ID] = &Record{Order: o}
	return []Change{{Kind: ChangeAdded, Source: SourcePush, ID: o.ID, OrderID: o.OrderID, To: o.Status}}
}

func (c *Cache) applyDeleted(p service.OrderDeleted) []Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[p.ID]
	if !ok {
		return nil
	}
	delete(c.records, p.ID)
	return []Change{{Kind: ChangeRemoved, Source: SourcePush, ID: p.ID, OrderID: rec.Order.OrderID, From: rec.Order.Status}}
}
