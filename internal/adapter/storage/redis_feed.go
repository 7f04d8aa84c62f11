package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/glossly/dealdesk/internal/port"
)

const dealerTopicPrefix = "orders:dealer:"

// RedisFeed carries order events over a per-dealer pub/sub topic. Pub/sub is
// fire-and-forget: delivery is at-least-once at best and unordered across
// publishers, which is exactly the channel contract the sync client is
// built to tolerate.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func dealerTopic(dealerID string) string {
	return dealerTopicPrefix + dealerID
}

func (r *RedisFeed) Publish(ctx context.Context, dealerID string, event port.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, dealerTopic(dealerID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", dealerTopic(dealerID), err)
	}
	return nil
}

// Subscribe opens the dealer's topic. Malformed payloads are logged and
// dropped rather than killing the subscription. Closing the returned
// unsubscribe func tears down the pub/sub connection, which closes the
// event channel.
func (r *RedisFeed) Subscribe(ctx context.Context, dealerID string) (<-chan port.OrderEvent, func() error, error) {
	pubsub := r.client.Subscribe(ctx, dealerTopic(dealerID))

	// Confirm the subscription before handing the channel out, so events
	// published after Subscribe returns are not silently missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", dealerTopic(dealerID), err)
	}

	out := make(chan port.OrderEvent)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev port.OrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("feed: dropping malformed event on %s: %v", msg.Channel, err)
				continue
			}
			out <- ev
		}
	}()

	return out, pubsub.Close, nil
}
