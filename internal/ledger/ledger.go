// Package ledger provides the atomic record-once primitive used to filter
// duplicate deliveries. Two concurrent callers with the same key must
// never both observe Inserted; the backing store's conditional insert is
// the dedup signal, not a separate existence check.
package ledger

import (
	"context"
	"sync"
)

type Result int

const (
	Inserted Result = iota
	AlreadyExists
)

func (r Result) String() string {
	if r == Inserted {
		return "inserted"
	}
	return "already_exists"
}

// Ledger records each key at most once.
type Ledger interface {
	RecordOnce(ctx context.Context, key string) (Result, error)
}

// Memory is a mutex-guarded in-process ledger for tests and
// single-process development.
type Memory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (m *Memory) RecordOnce(ctx context.Context, key string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return AlreadyExists, nil
	}
	m.seen[key] = struct{}{}
	return Inserted, nil
}
