package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/example/omni-commerce/internal/ledger"
)

// PostgresStore persists the read model. The unique constraint on
// order_id is the idempotent ledger for the projector.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the catalog service tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS received_orders (
			id          TEXT PRIMARY KEY,
			order_id    TEXT NOT NULL UNIQUE,
			customer_id TEXT NOT NULL,
			amount      DOUBLE PRECISION NOT NULL,
			currency    TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			received_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_received_orders_received_at ON received_orders (received_at DESC);
	`)
	return err
}

func (s *PostgresStore) InsertOnce(ctx context.Context, row *ReceivedOrder) (ledger.Result, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO received_orders (id, order_id, customer_id, amount, currency, created_at, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (order_id) DO NOTHING`,
		row.ID, row.OrderID, row.CustomerID, row.Amount, row.Currency, row.CreatedAt, row.ReceivedAt,
	)
	if err != nil {
		return ledger.AlreadyExists, fmt.Errorf("insert received order: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return ledger.AlreadyExists, err
	}
	if rows == 0 {
		return ledger.AlreadyExists, nil
	}
	return ledger.Inserted, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*ReceivedOrder, error) {
	var row ReceivedOrder
	err := s.db.QueryRowContext(ctx,
		`SELECT id, order_id, customer_id, amount, currency, created_at, received_at
		 FROM received_orders WHERE id = $1`,
		id,
	).Scan(&row.ID, &row.OrderID, &row.CustomerID, &row.Amount, &row.Currency, &row.CreatedAt, &row.ReceivedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*ReceivedOrder, error) {
	query := `SELECT id, order_id, customer_id, amount, currency, created_at, received_at
		 FROM received_orders ORDER BY received_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ReceivedOrder
	for rows.Next() {
		var row ReceivedOrder
		if err := rows.Scan(&row.ID, &row.OrderID, &row.CustomerID, &row.Amount, &row.Currency, &row.CreatedAt, &row.ReceivedAt); err != nil {
			return nil, err
		}
		result = append(result, &row)
	}
	return result, rows.Err()
}
