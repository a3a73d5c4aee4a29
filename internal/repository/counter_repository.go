package repository

import (
	"context"
	"database/sql"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
)

// CounterRepo implements named atomic counters and row locks on the
// `counters` table.
type CounterRepo struct {
	db *sql.DB
}

func NewCounterRepo(db *sql.DB) *CounterRepo { return &CounterRepo{db: db} }

// Next increments the named counter and returns its new value.  A counter
// seen for the first time returns start.  The increment is a single
// statement, so concurrent callers always receive distinct values.
func (r *CounterRepo) Next(ctx context.Context, name string, start int64) (int64, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO counters (name, value) VALUES (?, LAST_INSERT_ID(?))
		 ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`,
		name, start)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Lock takes an exclusive row lock named name until the surrounding
// transaction ends.  The upsert takes the exclusive lock directly; a shared
// lock first would deadlock concurrent callers.  Outside a transaction the lock is released immediately, so
// callers must run it inside TxManager.WithinTx.
func (r *CounterRepo) Lock(ctx context.Context, name string) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO counters (name, value) VALUES (?, 0)
		 ON DUPLICATE KEY UPDATE value = value`, name)
	return err
}
