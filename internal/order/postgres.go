package order

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/example/omni-commerce/internal/contracts"
	"github.com/example/omni-commerce/internal/ledger"
	"github.com/example/omni-commerce/internal/outbox"
)

// inboxScope keys processed payment-event deliveries in the shared
// processed_keys table.
const inboxScope = "order.payment-events"

// PostgresStore persists orders, their outbox entries, and the
// payment-event inbox in one database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the order service tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id          TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			amount      DOUBLE PRECISION NOT NULL,
			currency    TEXT NOT NULL,
			status      TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS outbox (
			id            TEXT PRIMARY KEY,
			order_id      TEXT NOT NULL,
			payload       JSONB NOT NULL,
			status        TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			dispatched_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (created_at) WHERE status = 'pending';
		CREATE TABLE IF NOT EXISTS processed_keys (
			scope       TEXT NOT NULL,
			key         TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (scope, key)
		);
	`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, o *Order, env contracts.Envelope) error {
	payload, err := env.Encode()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, amount, currency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.CustomerID, o.Amount, o.Currency, o.Status, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (id, order_id, payload, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		env.ID, o.ID, payload, outbox.StatusPending, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := s.db.QueryRowContext(ctx,
		`SELECT id, customer_id, amount, currency, status, created_at
		 FROM orders WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.CustomerID, &o.Amount, &o.Currency, &o.Status, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, amount, currency, status, created_at
		 FROM orders ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Amount, &o.Currency, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

// ApplyTransition records the delivery in the inbox and conditionally
// moves the order out of created, all in one transaction. The WHERE
// clause on status is the terminal-state guard: zero rows affected means
// unknown order, duplicate, or stale event, and all of those are no-ops.
func (s *PostgresStore) ApplyTransition(ctx context.Context, orderID, deliveryID string, to Status) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if deliveryID != "" {
		res, err := ledger.RecordOnceTx(ctx, tx, inboxScope, deliveryID)
		if err != nil {
			return false, err
		}
		if res == ledger.AlreadyExists {
			return false, tx.Commit()
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`,
		to, orderID, StatusCreated,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transition: %w", err)
	}
	return rows > 0, nil
}

// DispatchPending selects a batch of pending outbox entries FOR UPDATE
// SKIP LOCKED and publishes them inside that transaction, so the row
// locks hold until the batch commits and concurrent dispatchers work
// disjoint batches. Entries whose publish fails are left pending; their
// locks release at commit and the next tick retries them.
func (s *PostgresStore) DispatchPending(ctx context.Context, limit int, publish func(outbox.Entry) error) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, order_id, payload, status, created_at
		 FROM outbox
		 WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`,
		outbox.StatusPending, limit,
	)
	if err != nil {
		return 0, err
	}

	var entries []outbox.Entry
	for rows.Next() {
		var e outbox.Entry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Payload, &e.Status, &e.CreatedAt); err != nil {
			rows.Close()
			return 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	dispatched := 0
	for _, e := range entries {
		if err := publish(e); err != nil {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE outbox SET status = $1, dispatched_at = NOW() WHERE id = $2`,
			outbox.StatusDispatched, e.ID,
		); err != nil {
			return 0, fmt.Errorf("mark entry %s dispatched: %w", e.ID, err)
		}
		dispatched++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}
	return dispatched, nil
}
