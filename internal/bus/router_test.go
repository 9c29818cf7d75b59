package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/omni-commerce/internal/contracts"
)

type capturePublisher struct {
	mu        sync.Mutex
	published []contracts.Envelope
}

func (p *capturePublisher) Publish(ctx context.Context, key string, env contracts.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, env)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func encodedEnv(t *testing.T, kind string) []byte {
	t.Helper()
	env, err := contracts.Wrap(kind, contracts.PaymentFailed{OrderID: "order-1"})
	require.NoError(t, err)
	data, err := env.Encode()
	require.NoError(t, err)
	return data
}

func TestRouter_Dispatch_RoutesByKind(t *testing.T) {
	router := NewRouter("Test")

	var handled []string
	router.Handle(contracts.KindPaymentFailed, func(ctx context.Context, env contracts.Envelope) error {
		handled = append(handled, env.Kind)
		return nil
	})

	err := router.Dispatch(context.Background(), []byte("order-1"), encodedEnv(t, contracts.KindPaymentFailed))
	require.NoError(t, err)
	assert.Equal(t, []string{contracts.KindPaymentFailed}, handled)
}

func TestRouter_Dispatch_UnroutedKindIsAcknowledged(t *testing.T) {
	router := NewRouter("Test")

	err := router.Dispatch(context.Background(), []byte("order-1"), encodedEnv(t, contracts.KindOrderCreated))
	assert.NoError(t, err, "a queue skips kinds it did not register for")
}

func TestRouter_Dispatch_GarbageIsAnError(t *testing.T) {
	router := NewRouter("Test")

	err := router.Dispatch(context.Background(), nil, []byte("not json"))
	assert.Error(t, err)
}

func TestWithRetry_SucceedsWithoutRetry(t *testing.T) {
	dlq := &capturePublisher{}
	calls := 0
	handler := WithRetry("q", RetryPolicy{Attempts: 3, Interval: time.Millisecond}, dlq,
		func(ctx context.Context, key, value []byte) error {
			calls++
			return nil
		})

	require.NoError(t, handler(context.Background(), nil, []byte("{}")))
	assert.Equal(t, 1, calls)
	assert.Empty(t, dlq.published)
}

func TestWithRetry_RecoversOnLaterAttempt(t *testing.T) {
	dlq := &capturePublisher{}
	calls := 0
	handler := WithRetry("q", RetryPolicy{Attempts: 3, Interval: time.Millisecond}, dlq,
		func(ctx context.Context, key, value []byte) error {
			calls++
			if calls < 2 {
				return errors.New("transient")
			}
			return nil
		})

	require.NoError(t, handler(context.Background(), nil, []byte("{}")))
	assert.Equal(t, 2, calls)
	assert.Empty(t, dlq.published)
}

func TestWithRetry_ExhaustionDeadLetters(t *testing.T) {
	dlq := &capturePublisher{}
	calls := 0
	handler := WithRetry("q", RetryPolicy{Attempts: 3, Interval: time.Millisecond}, dlq,
		func(ctx context.Context, key, value []byte) error {
			calls++
			return errors.New("poison")
		})

	err := handler(context.Background(), []byte("order-1"), []byte(`{"kind":"OrderCreated"}`))
	require.NoError(t, err, "dead-lettered messages are acknowledged")
	assert.Equal(t, 3, calls)

	require.Len(t, dlq.published, 1)
	assert.Equal(t, KindDeadLetter, dlq.published[0].Kind)

	var dl DeadLetter
	require.NoError(t, dlq.published[0].Open(&dl))
	assert.Equal(t, "q", dl.Queue)
	assert.Equal(t, "poison", dl.Reason)
	assert.JSONEq(t, `{"kind":"OrderCreated"}`, string(dl.Message))
}

func TestMemoryBus_FanOutAndRedeliver(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	var mu sync.Mutex
	counts := map[string]int{}
	for _, queue := range []string{"q1", "q2"} {
		queue := queue
		b.Subscribe("topic", queue, func(ctx context.Context, key, value []byte) error {
			mu.Lock()
			counts[queue]++
			mu.Unlock()
			return nil
		})
	}

	env, err := contracts.Wrap(contracts.KindOrderCreated, contracts.OrderCreated{OrderID: "order-1"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, "topic", "order-1", env))

	assert.Equal(t, 1, counts["q1"])
	assert.Equal(t, 1, counts["q2"], "each bound queue receives its own copy")

	require.NoError(t, b.Redeliver(ctx, "topic"))
	assert.Equal(t, 2, counts["q1"], "redelivery simulates at-least-once duplicates")
}

func TestMemoryBus_SurfacesHandlerError(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	handlerErr := errors.New("projection rejected event")
	b.Subscribe("topic", "failing", func(ctx context.Context, key, value []byte) error {
		return handlerErr
	})
	ran := false
	b.Subscribe("topic", "healthy", func(ctx context.Context, key, value []byte) error {
		ran = true
		return nil
	})

	env, err := contracts.Wrap(contracts.KindOrderCreated, contracts.OrderCreated{OrderID: "order-1"})
	require.NoError(t, err)

	err = b.Publish(ctx, "topic", "order-1", env)
	assert.ErrorIs(t, err, handlerErr)
	assert.True(t, ran, "one queue failing must not starve the others")
}
