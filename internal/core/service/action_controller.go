package service

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glossly/dealdesk/internal/core/domain"
	"github.com/glossly/dealdesk/internal/port"
)

// ActionController is the per-order command surface. Every status command
// runs the same gauntlet: local status lookup, transition validation,
// per-order in-flight token, store mutation, merge of the confirmed record.
// Nothing is applied optimistically; only the record the store returns is
// merged back.
type ActionController struct {
	store port.OrderStore
	sync  *SyncClient

	inflight inflightSet
}

func NewActionController(store port.OrderStore, sync *SyncClient) *ActionController {
	return &ActionController{
		store: store,
		sync:  sync,
		inflight: inflightSet{
			ids: make(map[string]struct{}),
		},
	}
}

// Create places a new order on behalf of the client. There is no prior
// status, so the transition table is not consulted; the request is validated
// locally before any network call.
func (c *ActionController) Create(ctx context.Context, req domain.NewOrderRequest) (domain.Order, error) {
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}
	return c.store.Create(ctx, req)
}

// Accept moves the order forward and pins the agreed price: the countered
// price when the dealer countered, otherwise the client's proposed price.
func (c *ActionController) Accept(ctx context.Context, orderID string, actor domain.Actor) (domain.Order, error) {
	cur, ok := c.sync.Get(orderID)
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	agreed := cur.ProposedPrice
	if cur.AgreedPrice != nil {
		agreed = *cur.AgreedPrice
	}
	return c.transition(ctx, cur, domain.StatusAccepted, actor, &agreed)
}

// Reject declines the order. Legal for the dealer on a pending order and
// for either side on a countered one.
func (c *ActionController) Reject(ctx context.Context, orderID string, actor domain.Actor) (domain.Order, error) {
	cur, ok := c.sync.Get(orderID)
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	return c.transition(ctx, cur, domain.StatusRejected, actor, nil)
}

// Counter proposes a new price back to the client.
func (c *ActionController) Counter(ctx context.Context, orderID string, newPrice decimal.Decimal) (domain.Order, error) {
	if !newPrice.IsPositive() {
		return domain.Order{}, domain.ErrInvalidPrice
	}
	cur, ok := c.sync.Get(orderID)
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	return c.transition(ctx, cur, domain.StatusCountered, domain.ActorDealer, &newPrice)
}

// PayAndProceed records the client's payment step. Payment capture itself
// happens outside this core; only the status move is performed here.
func (c *ActionController) PayAndProceed(ctx context.Context, orderID string) (domain.Order, error) {
	cur, ok := c.sync.Get(orderID)
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	return c.transition(ctx, cur, domain.StatusPaid, domain.ActorClient, nil)
}

func (c *ActionController) MarkInProgress(ctx context.Context, orderID string) (domain.Order, error) {
	cur, ok := c.sync.Get(orderID)
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	return c.transition(ctx, cur, domain.StatusInProgress, domain.ActorDealer, nil)
}

func (c *ActionController) MarkCompleted(ctx context.Context, orderID string) (domain.Order, error) {
	cur, ok := c.sync.Get(orderID)
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	return c.transition(ctx, cur, domain.StatusCompleted, domain.ActorDealer, nil)
}

// MarkOpened stamps the first time the dealer renders the order's detail.
// Fire-and-forget telemetry: failures are logged and swallowed, rendering is
// never blocked. The store's null guard makes the stamp at-most-once.
func (c *ActionController) MarkOpened(ctx context.Context, orderID string) {
	cur, ok := c.sync.Get(orderID)
	if !ok || cur.OpenedAt != nil {
		return
	}
	if err := c.store.MarkOpened(ctx, orderID, time.Now().UTC()); err != nil {
		log.Printf("controller: mark opened for order %s failed: %v", orderID, err)
	}
}

// transition runs the shared command path. The validator is checked before
// any network call; an illegal edge fails fast with *TransitionError. The
// in-flight token serializes commands per order id only, so unrelated
// orders mutate concurrently.
func (c *ActionController) transition(ctx context.Context, cur domain.Order, target domain.Status, actor domain.Actor, agreedPrice *decimal.Decimal) (domain.Order, error) {
	if !domain.IsAllowedTransition(cur.Status, target, actor) {
		return domain.Order{}, &TransitionError{
			OrderID: cur.ID,
			From:    cur.Status,
			To:      target,
			Actor:   actor,
		}
	}
	if !c.inflight.acquire(cur.ID) {
		return domain.Order{}, &ConcurrentMutationError{OrderID: cur.ID}
	}
	defer c.inflight.release(cur.ID)

	updated, err := c.store.Transition(ctx, cur.ID, actor, target, agreedPrice)
	if err != nil {
		return domain.Order{}, err
	}

	// MergeUpdate no-ops once the sync client is stopped, which is the
	// "still mounted" check for results arriving after teardown.
	c.sync.MergeUpdate(updated)
	return updated, nil
}
