package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nirvaan-oms/api/internal/client"
	"github.com/nirvaan-oms/api/internal/logger"
	"github.com/nirvaan-oms/api/internal/orderflow"
	"github.com/nirvaan-oms/api/internal/ws"
	"github.com/rs/zerolog"
)

// API is the slice of the REST client the syncer needs.
// Satisfied by *client.Client; narrow interface for testability.
type API interface {
	AllCourierOrders(ctx context.Context, status string, pageSize int) ([]client.Order, error)
	UpdateCourierStatus(ctx context.Context, id, status string) (client.Order, bool, error)
}

// Syncer keeps a Cache in step with the server by polling, and routes local
// status updates through it.
type Syncer struct {
	api      API
	cache    *Cache
	role     orderflow.Role
	interval time.Duration
	pageSize int
	log      zerolog.Logger
}

// NewSyncer creates a syncer acting as a courier.
func NewSyncer(api API, cache *Cache, interval time.Duration, pageSize int) *Syncer {
	return &Syncer{
		api:      api,
		cache:    cache,
		role:     orderflow.RoleCourier,
		interval: interval,
		pageSize: pageSize,
		log:      logger.With("tracker"),
	}
}

// Cache returns the cache being synced.
func (s *Syncer) Cache() *Cache {
	return s.cache
}

// Run refreshes immediately and then every interval until ctx is done. A
// failed poll is logged and the cache keeps its last state.
func (s *Syncer) Run(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.log.Warn().Err(err).Msg("initial refresh failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("poll failed")
			}
		}
	}
}

// Refresh reconciles the cache against a full snapshot of the courier view.
func (s *Syncer) Refresh(ctx context.Context) ([]Change, error) {
	orders, err := s.api.AllCourierOrders(ctx, "", s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	changes := s.cache.Reconcile(orders)
	s.report(changes...)
	return changes, nil
}

// UpdateStatus moves an order to status: the cache changes first, then the
// server is called. A failed call rolls the cache back. A successful one is
// confirmed and followed by a full reload. Re-applying the current status
// returns ErrSameStatus without any request.
func (s *Syncer) UpdateStatus(ctx context.Context, id, status string) (client.Order, error) {
	target, err := orderflow.ParseStatus(status)
	if err != nil {
		return client.Order{}, err
	}

	ch, err := s.cache.Begin(id, s.role, target)
	if err != nil {
		return client.Order{}, err
	}
	s.report(ch)

	order, _, err := s.api.UpdateCourierStatus(ctx, id, string(target))
	if err != nil {
		if rb, ok := s.cache.Rollback(id); ok {
			s.report(rb)
		}
		return client.Order{}, err
	}

	if ch, ok := s.cache.Confirm(id, order); ok {
		s.report(ch)
	}
	if _, err := s.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("reload after status update failed")
	}
	return order, nil
}

// ApplyEvent hands a push event to the cache, reloading when it names an
// order the cache does not know.
func (s *Syncer) ApplyEvent(ctx context.Context, ev ws.Event) error {
	changes, err := s.cache.ApplyEvent(ev)
	if errors.Is(err, ErrNotFound) {
		_, err = s.Refresh(ctx)
		return err
	}
	if err != nil {
		return err
	}
	s.report(changes...)
	return nil
}

func (s *Syncer) report(changes ...Change) {
	for _, ch := range changes {
		e := s.log.Info()
		if ch.Source == SourceRollback {
			e = s.log.Warn()
		}
		e.Str("kind", string(ch.Kind)).
			Str("source", string(ch.Source)).
			Str("id", ch.ID).
			Str("order_id", ch.OrderID).
			Str("from", ch.From).
			Str("to", ch.To).
			Msg("order changed")
	}
}
