package bus

import (
	"context"

	"github.com/example/omni-commerce/internal/contracts"
)

// MessageHandler processes one raw message. A non-nil error means the
// message was not acknowledged and will be redelivered by the transport.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Publisher sends envelopes to a single topic.
type Publisher interface {
	Publish(ctx context.Context, key string, env contracts.Envelope) error
	Close() error
}

// Consumer pulls messages from a single topic on behalf of one durable
// queue (consumer group) and feeds them to a handler.
type Consumer interface {
	Consume(ctx context.Context, handler MessageHandler) error
	Close() error
}
