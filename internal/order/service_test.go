package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/omni-commerce/internal/contracts"
)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store), store
}

// ============================================
// Create Order Tests
// ============================================

func TestService_Create_Success(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateOrder{CustomerID: "alice", Amount: 100, Currency: "usd"})

	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "alice", o.CustomerID)
	assert.Equal(t, 100.0, o.Amount)
	assert.Equal(t, "USD", o.Currency, "currency is normalized to upper case")
	assert.Equal(t, StatusCreated, o.Status)

	stored, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, stored.Status)
}

func TestService_Create_QueuesOrderCreatedInOutbox(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateOrder{CustomerID: "alice", Amount: 100, Currency: "usd"})
	require.NoError(t, err)

	entries, err := store.PendingBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, o.ID, entries[0].OrderID)

	env, err := contracts.Decode(entries[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, contracts.KindOrderCreated, env.Kind)

	var evt contracts.OrderCreated
	require.NoError(t, env.Open(&evt))
	assert.Equal(t, o.ID, evt.OrderID)
	assert.Equal(t, "USD", evt.Currency)
	assert.Equal(t, 100.0, evt.Amount)
}

func TestService_Create_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateOrder{CustomerID: "", Amount: 100, Currency: "usd"})
	assert.ErrorIs(t, err, ErrEmptyCustomer)

	_, err = svc.Create(ctx, CreateOrder{CustomerID: "alice", Amount: 0, Currency: "usd"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Create(ctx, CreateOrder{CustomerID: "alice", Amount: -5, Currency: "usd"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Create(ctx, CreateOrder{CustomerID: "alice", Amount: 100, Currency: "  "})
	assert.ErrorIs(t, err, ErrEmptyCurrency)
}

// ============================================
// Payment Outcome Tests
// ============================================

func paymentSucceededEnv(t *testing.T, orderID string) contracts.Envelope {
	t.Helper()
	env, err := contracts.Wrap(contracts.KindPaymentSucceeded, contracts.PaymentSucceeded{
		PaymentID: "pay-1",
		OrderID:   orderID,
	})
	require.NoError(t, err)
	return env
}

func paymentFailedEnv(t *testing.T, orderID string) contracts.Envelope {
	t.Helper()
	env, err := contracts.Wrap(contracts.KindPaymentFailed, contracts.PaymentFailed{
		OrderID: orderID,
		Reason:  "declined",
	})
	require.NoError(t, err)
	return env
}

func TestService_HandlePaymentSucceeded_MarksPaid(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateOrder{CustomerID: "alice", Amount: 100, Currency: "usd"})
	require.NoError(t, err)

	require.NoError(t, svc.HandlePaymentSucceeded(ctx, paymentSucceededEnv(t, o.ID)))

	stored, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, stored.Status)
}

func TestService_HandlePaymentFailed_Cancels(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateOrder{CustomerID: "fail_bob", Amount: 50, Currency: "eur"})
	require.NoError(t, err)

	require.NoError(t, svc.HandlePaymentFailed(ctx, paymentFailedEnv(t, o.ID)))

	stored, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
}

func TestService_HandlePaymentSucceeded_UnknownOrderIsNoOp(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	err := svc.HandlePaymentSucceeded(ctx, paymentSucceededEnv(t, "no-such-order"))
	assert.NoError(t, err, "unknown order must not surface an error")
}

func TestService_HandlePaymentSucceeded_DuplicateDeliveryIsNoOp(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateOrder{CustomerID: "alice", Amount: 100, Currency: "usd"})
	require.NoError(t, err)

	env := paymentSucceededEnv(t, o.ID)
	require.NoError(t, svc.HandlePaymentSucceeded(ctx, env))
	require.NoError(t, svc.HandlePaymentSucceeded(ctx, env))

	stored, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, stored.Status)
}

func TestService_TerminalStatusIsNeverRegressed(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateOrder{CustomerID: "fail_bob", Amount: 50, Currency: "eur"})
	require.NoError(t, err)

	require.NoError(t, svc.HandlePaymentFailed(ctx, paymentFailedEnv(t, o.ID)))

	// A stale or duplicated success event must not resurrect the order.
	require.NoError(t, svc.HandlePaymentSucceeded(ctx, paymentSucceededEnv(t, o.ID)))

	stored, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
}

func TestService_List_NewestFirst(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateOrder{CustomerID: "alice", Amount: 1, Currency: "usd"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateOrder{CustomerID: "bob", Amount: 2, Currency: "usd"})
	require.NoError(t, err)

	orders, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
}
