package port

import (
	"context"

	"github.com/glossly/dealdesk/internal/core/domain"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// OrderEvent is one message on a dealer's push topic. The order is the full
// post-mutation record, never a diff.
type OrderEvent struct {
	Type  EventType    `json:"type"`
	Order domain.Order `json:"order"`
}

// EventFeed delivers a dealer's order events. Delivery is at-least-once and
// unordered; deduplication is the subscriber's job.
type EventFeed interface {
	// Subscribe opens the dealer's topic. The returned channel is closed
	// after unsubscribe is called; unsubscribe releases the channel and is
	// safe to call once.
	Subscribe(ctx context.Context, dealerID string) (<-chan OrderEvent, func() error, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, dealerID string, event OrderEvent) error
}
