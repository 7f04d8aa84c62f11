// dealerwatch tails one dealer's live queue from the terminal: it performs
// the initial fetch, subscribes to the dealer's push topic, and reprints the
// four buckets whenever the collection changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/glossly/dealdesk/internal/adapter/storage"
	"github.com/glossly/dealdesk/internal/core/domain"
	"github.com/glossly/dealdesk/internal/core/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	dealerID := flag.String("dealer", "", "dealer id to watch")
	apiURL := flag.String("api", envOr("API_URL", "http://localhost:8080"), "order store API base URL")
	redisAddr := flag.String("redis", envOr("REDIS_ADDR", "localhost:6379"), "redis address")
	flag.Parse()

	if *dealerID == "" {
		log.Fatal("usage: dealerwatch -dealer <dealer-id>")
	}

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	store := storage.NewRESTStore(*apiURL, nil)
	feed := storage.NewRedisFeed(rdb)

	watch := service.NewSyncClient(store, feed, func(o domain.Order) {
		log.Printf("new lead: order %s from %s at %s", o.ID, o.ClientID, o.ProposedPrice)
	})

	// Subscribe before the initial fetch so nothing published in between is
	// missed; the merge rules absorb any overlap.
	if err := watch.Start(ctx, *dealerID); err != nil {
		log.Fatalf("failed to subscribe: %v", err)
	}
	defer watch.Stop()

	if _, err := watch.LoadInitial(ctx, *dealerID); err != nil {
		log.Fatalf("initial load failed: %v", err)
	}

	printQueue(watch.Queue())

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	last := len(watch.Snapshot())
	for {
		select {
		case <-ticker.C:
			if n := len(watch.Snapshot()); n != last {
				last = n
				printQueue(watch.Queue())
			}
		case <-quit:
			log.Println("stopping watch")
			return
		}
	}
}

func printQueue(q service.Queue) {
	fmt.Printf("\n=== queue (unseen: %d) ===\n", q.UnseenCount)
	printBucket("pending", q.Pending)
	printBucket("active", q.Active)
	printBucket("completed", q.Completed)
	printBucket("rejected", q.Rejected)
}

func printBucket(name string, orders []domain.Order) {
	fmt.Printf("%s (%d):\n", name, len(orders))
	for _, o := range orders {
		price := o.ProposedPrice.String()
		if o.AgreedPrice != nil {
			price = o.AgreedPrice.String()
		}
		fmt.Printf("  %s  %-11s  %s  %s\n", o.ID, o.Status, price, o.ClientID)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
