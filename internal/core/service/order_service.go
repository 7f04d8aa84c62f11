package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/glossly/dealdesk/internal/core/domain"
	"github.com/glossly/dealdesk/internal/port"
)

// OrderService is the backend side of the order store contract: it owns the
// authoritative records and emits the per-dealer insert/update events the
// sync client consumes. It re-validates every transition against the same
// domain table the controller uses, so an illegal edge is refused even when
// a stale or buggy client asks for it.
type OrderService struct {
	db        port.DatabaseRepository
	publisher port.EventPublisher
}

func NewOrderService(db port.DatabaseRepository, publisher port.EventPublisher) *OrderService {
	return &OrderService{db: db, publisher: publisher}
}

func (s *OrderService) Create(ctx context.Context, req domain.NewOrderRequest) (domain.Order, error) {
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:            uuid.NewString(),
		GigID:         req.GigID,
		ClientID:      req.ClientID,
		DealerID:      req.DealerID,
		ProposedPrice: req.ProposedPrice,
		ScheduledDate: req.ScheduledDate,
		Notes:         req.Notes,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.db.Insert(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	s.publish(ctx, order.DealerID, port.OrderEvent{Type: port.EventInsert, Order: order})
	return order, nil
}

func (s *OrderService) Transition(ctx context.Context, orderID string, actor domain.Actor, target domain.Status, agreedPrice *decimal.Decimal) (domain.Order, error) {
	if !target.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus
	}
	if !actor.Valid() {
		return domain.Order{}, domain.ErrInvalidActor
	}
	if agreedPrice != nil && !agreedPrice.IsPositive() {
		return domain.Order{}, domain.ErrInvalidPrice
	}

	cur, err := s.db.GetByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load order: %w", err)
	}
	if cur == nil {
		return domain.Order{}, ErrOrderNotFound
	}
	if !domain.IsAllowedTransition(cur.Status, target, actor) {
		return domain.Order{}, fmt.Errorf("%w: %s may not move %s -> %s",
			ErrIllegalTransition, actor, cur.Status, target)
	}

	updated, err := s.db.UpdateStatus(ctx, orderID, cur.Status, target, agreedPrice, time.Now().UTC())
	if err != nil {
		return domain.Order{}, err
	}

	s.publish(ctx, updated.DealerID, port.OrderEvent{Type: port.EventUpdate, Order: *updated})
	return *updated, nil
}

// MarkOpened stamps opened_at once. Re-stamping is a no-op, never an error,
// and emits no event.
func (s *OrderService) MarkOpened(ctx context.Context, orderID string, at time.Time) error {
	cur, err := s.db.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if cur == nil {
		return ErrOrderNotFound
	}
	return s.db.SetOpenedAt(ctx, orderID, at)
}

func (s *OrderService) ListByDealer(ctx context.Context, dealerID string) ([]domain.Order, error) {
	return s.db.ListByDealer(ctx, dealerID)
}

// publish emits an event on the dealer's topic. The store row is
// authoritative and the channel is at-least-once, so a publish failure is
// logged rather than failing the mutation.
func (s *OrderService) publish(ctx context.Context, dealerID string, ev port.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, dealerID, ev); err != nil {
		log.Printf("orders: publish %s event for order %s failed: %v", ev.Type, ev.Order.ID, err)
	}
}
