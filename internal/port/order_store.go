package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glossly/dealdesk/internal/core/domain"
)

// OrderStore is the remote CRUD contract of the authoritative order record.
// The dealer-side core consumes it through the REST adapter; the backend's
// OrderService implements the same semantics on top of DatabaseRepository.
type OrderStore interface {
	// ListByDealer fetches all orders for a dealer, newest first.
	ListByDealer(ctx context.Context, dealerID string) ([]domain.Order, error)

	// Create persists a new pending order on behalf of the client.
	Create(ctx context.Context, req domain.NewOrderRequest) (domain.Order, error)

	// Transition moves an order to target. agreedPrice, when non-nil,
	// accompanies the status change (accept pins it, counter replaces it).
	// The store re-validates the edge and may reject it independently.
	Transition(ctx context.Context, orderID string, actor domain.Actor, target domain.Status, agreedPrice *decimal.Decimal) (domain.Order, error)

	// MarkOpened stamps openedAt if it is still null. Idempotent.
	MarkOpened(ctx context.Context, orderID string, at time.Time) error
}
