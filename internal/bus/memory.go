package bus

import (
	"context"
	"sync"

	"github.com/example/omni-commerce/internal/contracts"
)

// MemoryBus is an in-process transport used in tests and single-process
// development. Publish delivers synchronously to every subscribed queue
// and surfaces handler errors, and Redeliver replays the last message to
// simulate at-least-once duplicate delivery.
type MemoryBus struct {
	mu       sync.Mutex
	handlers map[string]map[string]MessageHandler // topic -> queue -> handler
	last     map[string][2][]byte                 // topic -> last key/value
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string]map[string]MessageHandler),
		last:     make(map[string][2][]byte),
	}
}

// Subscribe binds a queue to a topic. One handler per queue.
func (b *MemoryBus) Subscribe(topic, queue string, handler MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[string]MessageHandler)
	}
	b.handlers[topic][queue] = handler
}

// Publish fans the envelope out to every queue bound to the topic.
func (b *MemoryBus) Publish(ctx context.Context, topic, key string, env contracts.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return b.Deliver(ctx, topic, []byte(key), data)
}

// Deliver pushes a raw message to every queue bound to the topic. Every
// handler runs; the first handler error is returned so tests can assert
// that a delivery produced no errors anywhere in the choreography.
func (b *MemoryBus) Deliver(ctx context.Context, topic string, key, value []byte) error {
	b.mu.Lock()
	b.last[topic] = [2][]byte{key, value}
	handlers := make([]MessageHandler, 0, len(b.handlers[topic]))
	for _, h := range b.handlers[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	var firstErr error
	for _, h := range handlers {
		if err := h(ctx, key, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Redeliver replays the most recent message on the topic.
func (b *MemoryBus) Redeliver(ctx context.Context, topic string) error {
	b.mu.Lock()
	msg, ok := b.last[topic]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return b.Deliver(ctx, topic, msg[0], msg[1])
}

// TopicPublisher adapts one MemoryBus topic to the Publisher interface.
type TopicPublisher struct {
	bus   *MemoryBus
	topic string
}

func (b *MemoryBus) Topic(topic string) *TopicPublisher {
	return &TopicPublisher{bus: b, topic: topic}
}

func (p *TopicPublisher) Publish(ctx context.Context, key string, env contracts.Envelope) error {
	return p.bus.Publish(ctx, p.topic, key, env)
}

func (p *TopicPublisher) Close() error { return nil }
