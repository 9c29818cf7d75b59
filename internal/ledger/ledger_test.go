package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RecordOnce_FirstInsertWins(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	res, err := m.RecordOnce(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, Inserted, res)

	res, err = m.RecordOnce(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, res)
}

func TestMemory_RecordOnce_IndependentKeys(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	res, err := m.RecordOnce(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, Inserted, res)

	res, err = m.RecordOnce(ctx, "order-2")
	require.NoError(t, err)
	assert.Equal(t, Inserted, res)
}

func TestMemory_RecordOnce_ConcurrentSameKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	results := make(chan Result, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.RecordOnce(ctx, "order-1")
			assert.NoError(t, err)
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	inserted := 0
	for res := range results {
		if res == Inserted {
			inserted++
		}
	}
	assert.Equal(t, 1, inserted, "exactly one concurrent caller must observe Inserted")
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "inserted", fmt.Sprint(Inserted))
	assert.Equal(t, "already_exists", fmt.Sprint(AlreadyExists))
}
