package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Postgres records keys in a table with a composite primary key on
// (scope, key). ON CONFLICT DO NOTHING makes the insert the atomic
// dedup check: zero rows affected means another delivery got there first.
type Postgres struct {
	db    *sql.DB
	scope string
}

func NewPostgres(db *sql.DB, scope string) *Postgres {
	return &Postgres{db: db, scope: scope}
}

func (p *Postgres) RecordOnce(ctx context.Context, key string) (Result, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO processed_keys (scope, key, recorded_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (scope, key) DO NOTHING`,
		p.scope, key,
	)
	if err != nil {
		return AlreadyExists, fmt.Errorf("record key %s: %w", key, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return AlreadyExists, err
	}
	if rows == 0 {
		return AlreadyExists, nil
	}
	return Inserted, nil
}

// RecordOnceTx is the same insert inside a caller-owned transaction, so
// the dedup record commits atomically with the business write it guards.
func RecordOnceTx(ctx context.Context, tx *sql.Tx, scope, key string) (Result, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO processed_keys (scope, key, recorded_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (scope, key) DO NOTHING`,
		scope, key,
	)
	if err != nil {
		return AlreadyExists, fmt.Errorf("record key %s: %w", key, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return AlreadyExists, err
	}
	if rows == 0 {
		return AlreadyExists, nil
	}
	return Inserted, nil
}
