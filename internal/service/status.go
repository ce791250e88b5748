package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/enum"
	"github.com/nirvaan-oms/api/internal/logger"
	"github.com/nirvaan-oms/api/internal/orderflow"
	"github.com/nirvaan-oms/api/internal/ws"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// StatusStore defines the DB methods needed to move and delete orders.
// Satisfied by *database.Queries.
type StatusStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (int64, error)
}

// StatusService applies order status transitions.
type StatusService struct {
	store StatusStore
	hub   Broadcaster
}

// NewStatusService creates a StatusService. hub may be nil.
func NewStatusService(store StatusStore, hub Broadcaster) *StatusService {
	return &StatusService{store: store, hub: hub}
}

// UpdateStatus moves order id to target on behalf of role. Re-applying the
// current status returns the order unchanged with changed=false and writes
// nothing. The write is a compare-and-set on the status read, so a
// concurrent change surfaces as ErrStatusConflict.
func (s *StatusService) UpdateStatus(ctx context.Context, role orderflow.Role, id uuid.UUID, target string) (database.Order, bool, error) {
	to, err := orderflow.ParseStatus(target)
	if err != nil {
		return database.Order{}, false, err
	}

	current, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, false, ErrOrderNotFound
		}
		return database.Order{}, false, fmt.Errorf("get order: %w", err)
	}

	tr, err := orderflow.Resolve(role, orderflow.Status(current.Status), to)
	if errors.Is(err, orderflow.ErrSameStatus) {
		return current, false, nil
	}
	if err != nil {
		return database.Order{}, false, err
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:       id,
		Status:   database.OrderStatus(tr.To),
		Status_2: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, false, ErrStatusConflict
		}
		return database.Order{}, false, fmt.Errorf("update order status: %w", err)
	}

	logger.Info().
		Str("order", updated.OrderCode).
		Str("from", string(tr.From)).
		Str("to", string(tr.To)).
		Str("role", string(role)).
		Msg("order status changed")

	publish(s.hub, enum.EventOrderStatusChanged, StatusChange{
		ID:        updated.ID.String(),
		OrderID:   updated.OrderCode,
		From:      string(tr.From),
		Status:    string(tr.To),
		Role:      string(role),
		UpdatedAt: updated.UpdatedAt.Time,
	}, ws.RoomAdmin, ws.RoomCourier)

	return updated, true, nil
}

// DeleteOrder removes an order and notifies every room.
func (s *StatusService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}

	n, err := s.store.DeleteOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}

	publish(s.hub, enum.EventOrderDeleted, OrderDeleted{
		ID:      order.ID.String(),
		OrderID: order.OrderCode,
	}, ws.RoomAdmin, ws.RoomCourier)
	return nil
}
