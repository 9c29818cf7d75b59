package bus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/example/omni-commerce/internal/contracts"
)

// EnvelopeHandler processes one decoded event.
type EnvelopeHandler func(ctx context.Context, env contracts.Envelope) error

// Router maps event kinds to handlers. Kinds without a route are
// acknowledged and skipped; a queue only cares about the events it
// registered for.
type Router struct {
	name   string
	routes map[string]EnvelopeHandler
}

func NewRouter(name string) *Router {
	return &Router{
		name:   name,
		routes: make(map[string]EnvelopeHandler),
	}
}

func (r *Router) Handle(kind string, handler EnvelopeHandler) {
	r.routes[kind] = handler
}

// Dispatch decodes the raw message and routes it by kind.
func (r *Router) Dispatch(ctx context.Context, key, value []byte) error {
	env, err := contracts.Decode(value)
	if err != nil {
		// Undecodable messages are not retryable; let the retry wrapper
		// dead-letter them.
		return err
	}

	handler, ok := r.routes[env.Kind]
	if !ok {
		log.Printf("[%s] Skipping unrouted event kind %s", r.name, env.Kind)
		return nil
	}
	return handler(ctx, env)
}

// RetryPolicy bounds redelivery before a message is dead-lettered.
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultRetry matches the broker policy the services are deployed with.
var DefaultRetry = RetryPolicy{Attempts: 3, Interval: 5 * time.Second}

// DeadLetter carries a message that exhausted its retries, with enough
// metadata for an operator to diagnose and replay it.
type DeadLetter struct {
	Queue    string          `json:"queue"`
	Reason   string          `json:"reason"`
	Message  json.RawMessage `json:"message"`
	FailedAt time.Time       `json:"failed_at"`
}

const KindDeadLetter = "DeadLetter"

// WithRetry wraps a handler with the bounded retry policy. When attempts
// are exhausted the message is published to the dead-letter topic instead
// of being silently dropped.
func WithRetry(queue string, policy RetryPolicy, deadLetter Publisher, next MessageHandler) MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		var lastErr error
		for attempt := 1; attempt <= policy.Attempts; attempt++ {
			lastErr = next(ctx, key, value)
			if lastErr == nil {
				return nil
			}
			log.Printf("[%s] Attempt %d/%d failed: %v", queue, attempt, policy.Attempts, lastErr)

			if attempt < policy.Attempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(policy.Interval):
				}
			}
		}

		log.Printf("[%s] ALERT: retries exhausted, dead-lettering message: %v", queue, lastErr)
		env, err := contracts.Wrap(KindDeadLetter, DeadLetter{
			Queue:    queue,
			Reason:   lastErr.Error(),
			Message:  json.RawMessage(value),
			FailedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := deadLetter.Publish(ctx, string(key), env); err != nil {
			// Leave the message unacknowledged so the transport redelivers.
			return err
		}
		return nil
	}
}
