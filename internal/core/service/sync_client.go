package service

import (
	"context"
	"log"
	"sync"

	"github.com/glossly/dealdesk/internal/core/domain"
	"github.com/glossly/dealdesk/internal/port"
)

// SyncClient owns one dealer's local order collection. It is the only
// component with mutation rights over the collection; the projection and the
// action controller read it and request merges through it.
//
// The push channel is at-least-once and unordered, so every merge below is
// idempotent and safe under duplicate or racing delivery. Merges are
// synchronous and never block on I/O, so a partially applied merge is never
// observable.
type SyncClient struct {
	store  port.OrderStore
	feed   port.EventFeed
	onLead func(domain.Order)

	mu          sync.Mutex
	orders      []domain.Order
	index       map[string]int
	unseen      map[string]struct{}
	stopped     bool
	unsubscribe func() error
	done        chan struct{}
}

// NewSyncClient builds a sync client. onLead, when non-nil, fires once per
// newly observed pending order (a fresh lead) and is invoked outside the
// collection lock.
func NewSyncClient(store port.OrderStore, feed port.EventFeed, onLead func(domain.Order)) *SyncClient {
	return &SyncClient{
		store:  store,
		feed:   feed,
		onLead: onLead,
		index:  make(map[string]int),
		unseen: make(map[string]struct{}),
	}
}

// LoadInitial fetches the dealer's orders once and merges them into the
// collection. Orders already observed through the push channel keep their
// record and position: the pushed record is post-mutation and at least as
// fresh as the fetch. Failures wrap into *FetchError; the caller retries
// manually, this core never does.
func (s *SyncClient) LoadInitial(ctx context.Context, dealerID string) ([]domain.Order, error) {
	fetched, err := s.store.ListByDealer(ctx, dealerID)
	if err != nil {
		return nil, &FetchError{DealerID: dealerID, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		// View torn down while the fetch was in flight; discard the result.
		return nil, nil
	}
	for _, o := range fetched {
		if _, ok := s.index[o.ID]; ok {
			continue
		}
		s.index[o.ID] = len(s.orders)
		s.orders = append(s.orders, o)
	}
	return s.snapshotLocked(), nil
}

// Start opens the dealer's push topic and dispatches its events into the
// collection until Stop is called.
func (s *SyncClient) Start(ctx context.Context, dealerID string) error {
	events, unsubscribe, err := s.feed.Subscribe(ctx, dealerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for ev := range events {
			s.Apply(ev)
		}
	}()
	return nil
}

// Stop unsubscribes from the push topic and marks the collection torn down.
// In-flight fetches and mutations are not cancelled; their late results are
// discarded by the stopped check inside each merge.
func (s *SyncClient) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	unsubscribe := s.unsubscribe
	done := s.done
	s.unsubscribe = nil
	s.mu.Unlock()

	var err error
	if unsubscribe != nil {
		err = unsubscribe()
	}
	if done != nil {
		<-done
	}
	return err
}

// Apply merges one push event into the collection.
func (s *SyncClient) Apply(ev port.OrderEvent) {
	switch ev.Type {
	case port.EventInsert:
		s.applyInsert(ev.Order)
	case port.EventUpdate:
		s.MergeUpdate(ev.Order)
	default:
		log.Printf("sync: dropping event with unknown type %q for order %s", ev.Type, ev.Order.ID)
	}
}

// applyInsert prepends a new order. A duplicate id is redelivery, not an
// error: the event is ignored. A pending insert is a fresh lead and flags
// the order unseen.
func (s *SyncClient) applyInsert(o domain.Order) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if _, ok := s.index[o.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.prependLocked(o)

	lead := o.Status == domain.StatusPending
	if lead {
		s.unseen[o.ID] = struct{}{}
	}
	onLead := s.onLead
	s.mu.Unlock()

	if lead && onLead != nil {
		onLead(o)
	}
}

// MergeUpdate replaces an order's record in place, keeping its position so
// the queue does not visually jump under the dealer. An update for an id not
// yet observed is the race between the initial fetch and the subscription:
// it degrades to an insert, but not a lead, so no unseen flag is set.
func (s *SyncClient) MergeUpdate(o domain.Order) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if i, ok := s.index[o.ID]; ok {
		s.orders[i] = o
		s.mu.Unlock()
		return
	}
	s.prependLocked(o)
	s.mu.Unlock()
}

// prependLocked establishes the order's position at the head of the
// collection. Positions never change afterwards.
func (s *SyncClient) prependLocked(o domain.Order) {
	s.orders = append(s.orders, domain.Order{})
	copy(s.orders[1:], s.orders)
	s.orders[0] = o
	for id, i := range s.index {
		s.index[id] = i + 1
	}
	s.index[o.ID] = 0
}

// Get returns the order with the given id from the local collection.
func (s *SyncClient) Get(orderID string) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[orderID]
	if !ok {
		return domain.Order{}, false
	}
	return s.orders[i], true
}

// Snapshot copies the collection in display order.
func (s *SyncClient) Snapshot() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *SyncClient) snapshotLocked() []domain.Order {
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *SyncClient) UnseenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unseen)
}

func (s *SyncClient) IsUnseen(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.unseen[orderID]
	return ok
}

// ClearUnseen acknowledges a lead on the view side. No server round-trip;
// clearing an id that is not flagged is a no-op.
func (s *SyncClient) ClearUnseen(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unseen, orderID)
}

// Queue projects the current collection into the four dealer buckets.
func (s *SyncClient) Queue() Queue {
	s.mu.Lock()
	orders := s.snapshotLocked()
	unseen := make(map[string]struct{}, len(s.unseen))
	for id := range s.unseen {
		unseen[id] = struct{}{}
	}
	s.mu.Unlock()
	return BuildQueue(orders, unseen)
}
