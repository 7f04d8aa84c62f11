package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glossly/dealdesk/internal/core/domain"
	"github.com/glossly/dealdesk/internal/port"
)

func TestOrderService_CreatePublishesInsert(t *testing.T) {
	db := newMockDB()
	pub := &mockPublisher{}
	svc := NewOrderService(db, pub)

	order, err := svc.Create(context.Background(), domain.NewOrderRequest{
		GigID:         "gig-1",
		ClientID:      "client-1",
		DealerID:      "dealer-1",
		ProposedPrice: dec(120),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if order.ID == "" || order.Status != domain.StatusPending {
		t.Errorf("expected pending order with id, got %+v", order)
	}
	if order.AgreedPrice != nil {
		t.Errorf("new order must have no agreed price")
	}
	if len(pub.events) != 1 || pub.events[0].Type != port.EventInsert || pub.topics[0] != "dealer-1" {
		t.Errorf("expected one insert event on the dealer topic, got %+v", pub.events)
	}
	if _, ok := db.orders[order.ID]; !ok {
		t.Error("order must be persisted")
	}
}

func TestOrderService_CreateRejectsInvalidRequest(t *testing.T) {
	db := newMockDB()
	pub := &mockPublisher{}
	svc := NewOrderService(db, pub)

	_, err := svc.Create(context.Background(), domain.NewOrderRequest{
		GigID:         "gig-1",
		ClientID:      "p1",
		DealerID:      "p1",
		ProposedPrice: dec(10),
	})
	if !errors.Is(err, domain.ErrSameParty) {
		t.Errorf("expected ErrSameParty, got %v", err)
	}
	if len(db.orders) != 0 || len(pub.events) != 0 {
		t.Error("invalid request must not persist or publish")
	}
}

func TestOrderService_TransitionRevalidatesEdge(t *testing.T) {
	db := newMockDB()
	pub := &mockPublisher{}
	svc := NewOrderService(db, pub)

	o := testOrder("o1", "dealer-1", domain.StatusCompleted)
	db.orders[o.ID] = o

	_, err := svc.Transition(context.Background(), "o1", domain.ActorDealer, domain.StatusRejected, nil)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if db.updateCalls != 0 {
		t.Error("illegal edge must not reach the repository")
	}
	if len(pub.events) != 0 {
		t.Error("illegal edge must not publish")
	}
}

func TestOrderService_TransitionPublishesUpdate(t *testing.T) {
	db := newMockDB()
	pub := &mockPublisher{}
	svc := NewOrderService(db, pub)

	o := testOrder("o1", "dealer-1", domain.StatusPending)
	db.orders[o.ID] = o

	updated, err := svc.Transition(context.Background(), "o1", domain.ActorDealer, domain.StatusCountered, decPtr(95))
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if updated.Status != domain.StatusCountered || !updated.AgreedPrice.Equal(dec(95)) {
		t.Errorf("expected countered at 95, got %s/%v", updated.Status, updated.AgreedPrice)
	}
	if len(pub.events) != 1 || pub.events[0].Type != port.EventUpdate {
		t.Errorf("expected one update event, got %+v", pub.events)
	}
	if pub.events[0].Order.Status != domain.StatusCountered {
		t.Error("event must carry the post-mutation record")
	}
}

func TestOrderService_TransitionSurvivesPublishFailure(t *testing.T) {
	db := newMockDB()
	pub := &mockPublisher{err: errors.New("broker down")}
	svc := NewOrderService(db, pub)

	o := testOrder("o1", "dealer-1", domain.StatusPending)
	db.orders[o.ID] = o

	if _, err := svc.Transition(context.Background(), "o1", domain.ActorDealer, domain.StatusAccepted, decPtr(120)); err != nil {
		t.Fatalf("publish failure must not fail the mutation: %v", err)
	}
	if db.orders["o1"].Status != domain.StatusAccepted {
		t.Error("mutation must still be persisted")
	}
}

func TestOrderService_TransitionUnknownOrder(t *testing.T) {
	svc := NewOrderService(newMockDB(), &mockPublisher{})
	_, err := svc.Transition(context.Background(), "ghost", domain.ActorDealer, domain.StatusAccepted, nil)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderService_TransitionStatusConflict(t *testing.T) {
	db := newMockDB()
	svc := NewOrderService(db, &mockPublisher{})

	o := testOrder("o1", "dealer-1", domain.StatusPending)
	db.orders[o.ID] = o
	db.updateErr = port.ErrStatusConflict

	if _, err := svc.Transition(context.Background(), "o1", domain.ActorDealer, domain.StatusAccepted, nil); !errors.Is(err, port.ErrStatusConflict) {
		t.Errorf("expected port.ErrStatusConflict, got %v", err)
	}
}

func TestOrderService_MarkOpenedIsIdempotent(t *testing.T) {
	db := newMockDB()
	svc := NewOrderService(db, &mockPublisher{})

	o := testOrder("o1", "dealer-1", domain.StatusPending)
	db.orders[o.ID] = o

	first := time.Now().UTC()
	if err := svc.MarkOpened(context.Background(), "o1", first); err != nil {
		t.Fatalf("mark opened failed: %v", err)
	}
	if err := svc.MarkOpened(context.Background(), "o1", first.Add(time.Hour)); err != nil {
		t.Fatalf("second mark opened failed: %v", err)
	}
	if got := db.orders["o1"].OpenedAt; got == nil || !got.Equal(first) {
		t.Errorf("openedAt must keep the first stamp, got %v", got)
	}
}
