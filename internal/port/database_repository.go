package port

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glossly/dealdesk/internal/core/domain"
)

// ErrStatusConflict means the order's status changed between the caller's
// validation read and the guarded write.
var ErrStatusConflict = errors.New("order status changed concurrently")

type DatabaseRepository interface {
	// Insert persists a newly created order
	Insert(ctx context.Context, order domain.Order) error

	// GetByID returns the order or nil when absent
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// ListByDealer returns a dealer's orders ordered by created_at descending
	ListByDealer(ctx context.Context, dealerID string) ([]domain.Order, error)

	// UpdateStatus applies a status change guarded by the expected current
	// status (compare-and-set); returns ErrStatusConflict when raced
	UpdateStatus(ctx context.Context, orderID string, expected, target domain.Status, agreedPrice *decimal.Decimal, updatedAt time.Time) (*domain.Order, error)

	// SetOpenedAt stamps opened_at only while it is still NULL
	SetOpenedAt(ctx context.Context, orderID string, at time.Time) error
}
