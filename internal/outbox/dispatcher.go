package outbox

import (
	"context"
	"log"
	"time"

	"github.com/example/omni-commerce/internal/bus"
	"github.com/example/omni-commerce/internal/contracts"
)

// Dispatcher polls the outbox and publishes pending entries. A publish
// failure leaves the entry pending for the next tick, so delivery is
// at-least-once and consumers dedup.
type Dispatcher struct {
	source    Source
	publisher bus.Publisher
	interval  time.Duration
	batchSize int
}

func NewDispatcher(source Source, publisher bus.Publisher, interval time.Duration, batchSize int) *Dispatcher {
	return &Dispatcher{
		source:    source,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Flush(ctx); err != nil {
				log.Printf("[Outbox] Flush failed: %v", err)
			}
		}
	}
}

// Flush publishes one batch of pending entries. The source marks
// published entries dispatched within its own transaction, so a crash
// mid-batch leaves the unpublished remainder pending.
func (d *Dispatcher) Flush(ctx context.Context) error {
	_, err := d.source.DispatchPending(ctx, d.batchSize, func(entry Entry) error {
		env, err := contracts.Decode(entry.Payload)
		if err != nil {
			log.Printf("[Outbox] Undecodable entry %s: %v", entry.ID, err)
			return err
		}

		if err := d.publisher.Publish(ctx, entry.OrderID, env); err != nil {
			log.Printf("[Outbox] Failed to publish entry %s: %v", entry.ID, err)
			return err
		}

		log.Printf("[Outbox] Dispatched %s for order %s", env.Kind, entry.OrderID)
		return nil
	})
	return err
}
