package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaplan-Paving/fleet-backend/internal/database"
)

// stmtLog is a database/sql connector that records every statement it is
// asked to run.  Queries return a single zero row.
type stmtLog struct {
	mu      sync.Mutex
	stmts   []string
	commits int
}

func (l *stmtLog) Connect(context.Context) (driver.Conn, error) { return logConn{l}, nil }
func (l *stmtLog) Driver() driver.Driver                        { return logDriver{l} }

func (l *stmtLog) record(q string) {
	l.mu.Lock()
	l.stmts = append(l.stmts, q)
	l.mu.Unlock()
}

func (l *stmtLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.stmts...)
}

type logDriver struct{ l *stmtLog }

func (d logDriver) Open(string) (driver.Conn, error) { return logConn{d.l}, nil }

type logConn struct{ l *stmtLog }

func (c logConn) Prepare(q string) (driver.Stmt, error) { return logStmt{c.l, q}, nil }
func (c logConn) Close() error                          { return nil }
func (c logConn) Begin() (driver.Tx, error)             { return logTx{c.l}, nil }

type logTx struct{ l *stmtLog }

func (t logTx) Commit() error {
	t.l.mu.Lock()
	t.l.commits++
	t.l.mu.Unlock()
	return nil
}
func (t logTx) Rollback() error { return nil }

type logStmt struct {
	l *stmtLog
	q string
}

func (s logStmt) Close() error  { return nil }
func (s logStmt) NumInput() int { return -1 }

func (s logStmt) Exec([]driver.Value) (driver.Result, error) {
	s.l.record(s.q)
	return driver.RowsAffected(1), nil
}

func (s logStmt) Query([]driver.Value) (driver.Rows, error) {
	s.l.record(s.q)
	return &oneRow{}, nil
}

type oneRow struct{ done bool }

func (r *oneRow) Columns() []string { return []string{"value"} }
func (r *oneRow) Close() error      { return nil }

func (r *oneRow) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = int64(0)
	return nil
}

func TestCounterLockIsSingleExclusiveUpsert(t *testing.T) {
	l := &stmtLog{}
	db := sql.OpenDB(l)
	defer db.Close()

	repo := NewCounterRepo(db)
	err := database.NewTxManager(db).WithinTx(context.Background(), func(ctx context.Context) error {
		return repo.Lock(ctx, "lock:ticket-ranks")
	})
	require.NoError(t, err)

	stmts := l.all()
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "ON DUPLICATE KEY UPDATE value = value")
	assert.NotContains(t, stmts[0], "IGNORE")
	assert.Equal(t, 1, l.commits)
}
