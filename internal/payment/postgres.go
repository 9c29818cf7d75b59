package payment

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/example/omni-commerce/internal/ledger"
)

// PostgresStore persists payments. The unique constraint on order_id is
// the idempotent ledger: ON CONFLICT DO NOTHING with zero rows affected
// is the duplicate-delivery signal, atomic under concurrent redelivery.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the payment service tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS payments (
			id          TEXT PRIMARY KEY,
			order_id    TEXT NOT NULL UNIQUE,
			customer_id TEXT NOT NULL,
			amount      DOUBLE PRECISION NOT NULL,
			currency    TEXT NOT NULL,
			success     BOOLEAN NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

func (s *PostgresStore) CreateOnce(ctx context.Context, p *Payment) (ledger.Result, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, order_id, customer_id, amount, currency, success, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (order_id) DO NOTHING`,
		p.ID, p.OrderID, p.CustomerID, p.Amount, p.Currency, p.Success, p.CreatedAt,
	)
	if err != nil {
		return ledger.AlreadyExists, fmt.Errorf("insert payment: %w", err)
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

func (s *PostgresStore) List(ctx context.Context) ([]*Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, customer_id, amount, currency, success, created_at
		 FROM payments ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.CustomerID, &p.Amount, &p.Currency, &p.Success, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
