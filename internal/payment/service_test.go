package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/omni-commerce/internal/contracts"
)

// capturePublisher records published envelopes for assertions.
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

func (p *capturePublisher) envelopes() []contracts.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]contracts.Envelope(nil), p.published...)
}

func orderCreatedEnv(t *testing.T, orderID, customerID string) contracts.Envelope {
	t.Helper()
	env, err := contracts.Wrap(contracts.KindOrderCreated, contracts.OrderCreated{
		OrderID:    orderID,
		CustomerID: customerID,
		Amount:     100,
		Currency:   "USD",
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	return env
}

func TestDecide_Deterministic(t *testing.T) {
	assert.True(t, Decide("alice"))
	assert.False(t, Decide("fail_bob"))
	assert.False(t, Decide("FAIL_BOB"), "rule is case-insensitive")
	assert.False(t, Decide("unfailing"), "any occurrence of fail declines")

	// Same input, same outcome, every time.
	for i := 0; i < 100; i++ {
		assert.True(t, Decide("alice"))
		assert.False(t, Decide("fail_bob"))
	}
}

func TestService_HandleOrderCreated_PublishesPaymentSucceeded(t *testing.T) {
	store := NewMemoryStore()
	pub := &capturePublisher{}
	svc := NewService(store, pub)
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderCreated(ctx, orderCreatedEnv(t, "order-1", "alice")))

	payments, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "order-1", payments[0].OrderID)
	assert.True(t, payments[0].Success)

	published := pub.envelopes()
	require.Len(t, published, 1)
	assert.Equal(t, contracts.KindPaymentSucceeded, published[0].Kind)

	var evt contracts.PaymentSucceeded
	require.NoError(t, published[0].Open(&evt))
	assert.Equal(t, "order-1", evt.OrderID)
	assert.Equal(t, payments[0].ID, evt.PaymentID)
}

func TestService_HandleOrderCreated_PublishesPaymentFailed(t *testing.T) {
	store := NewMemoryStore()
	pub := &capturePublisher{}
	svc := NewService(store, pub)
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderCreated(ctx, orderCreatedEnv(t, "order-1", "fail_bob")))

	payments, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.False(t, payments[0].Success)

	published := pub.envelopes()
	require.Len(t, published, 1)
	assert.Equal(t, contracts.KindPaymentFailed, published[0].Kind)

	var evt contracts.PaymentFailed
	require.NoError(t, published[0].Open(&evt))
	assert.Equal(t, "order-1", evt.OrderID)
	assert.Equal(t, FailReason, evt.Reason)
}

func TestService_HandleOrderCreated_DuplicateDeliveryDoesNotRepublish(t *testing.T) {
	store := NewMemoryStore()
	pub := &capturePublisher{}
	svc := NewService(store, pub)
	ctx := context.Background()

	env := orderCreatedEnv(t, "order-1", "alice")
	require.NoError(t, svc.HandleOrderCreated(ctx, env))
	require.NoError(t, svc.HandleOrderCreated(ctx, env))
	require.NoError(t, svc.HandleOrderCreated(ctx, env))

	payments, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 1, "exactly one payment row per order id")
	assert.Len(t, pub.envelopes(), 1, "outcome is published exactly once")
}

func TestService_HandleOrderCreated_ConcurrentRedelivery(t *testing.T) {
	store := NewMemoryStore()
	pub := &capturePublisher{}
	svc := NewService(store, pub)
	ctx := context.Background()

	env := orderCreatedEnv(t, "order-1", "alice")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.HandleOrderCreated(ctx, env))
		}()
	}
	wg.Wait()

	payments, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.Len(t, pub.envelopes(), 1)
}
