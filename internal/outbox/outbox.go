// Package outbox dispatches events that were committed in the same
// transaction as the state change they describe. The dispatcher is the
// only path from a service's durable store onto the bus, which closes
// the lost-publish gap between commit and publish.
package outbox

import (
	"context"
	"time"
)

const (
	StatusPending    = "pending"
	StatusDispatched = "dispatched"
)

// Entry is one committed, not-yet-published event.
type Entry struct {
	ID           string     `json:"id"`
	OrderID      string     `json:"order_id"`
	Payload      []byte     `json:"payload"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
}

// Source exposes pending entries to the dispatcher. DispatchPending
// claims up to limit pending entries, hands each one to publish, marks
// the accepted ones dispatched, and commits the whole batch atomically.
// Claimed entries are invisible to concurrent dispatchers for the
// duration of the call. An entry whose publish fails stays pending.
type Source interface {
	DispatchPending(ctx context.Context, limit int, publish func(Entry) error) (int, error)
}
