package statements

import (
	"context"
	"database/sql"

	"github.com/cespare/xxhash"
	"github.com/jmoiron/sqlx"
)

// Batcher is the capability a Collection needs from every statement it
// tracks.
type Batcher interface {
	ExecuteBatch(ctx context.Context) error
	Close() error
}

// Preparer creates prepared statements. It is implemented by *sqlx.Conn,
// *sqlx.DB and *sqlx.Tx.
type Preparer interface {
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
}

// Statement is a prepared statement that queues parameter sets and executes
// them together.
type Statement struct {
	stmt        *sqlx.Stmt
	query       string
	fingerprint uint64
	batch       [][]any
	closed      bool
}

func newStatement(stmt *sqlx.Stmt, query string) *Statement {
	return &Statement{
		stmt:        stmt,
		query:       query,
		fingerprint: xxhash.Sum64String(query),
	}
}

// Query returns the SQL the statement was prepared from.
func (s *Statement) Query() string {
	return s.query
}

// Fingerprint returns a stable hash of the statement's SQL.
func (s *Statement) Fingerprint() uint64 {
	return s.fingerprint
}

// AddBatch queues one parameter set for the next ExecuteBatch.
func (s *Statement) AddBatch(args ...any) {
	s.batch = append(s.batch, append([]any(nil), args...))
}

// Pending returns the number of queued parameter sets.
func (s *Statement) Pending() int {
	return len(s.batch)
}

// ClearBatch drops every queued parameter set without executing it.
func (s *Statement) ClearBatch() {
	s.batch = nil
}

// ExecuteBatch executes the queued parameter sets in the order they were
// added. The queue is empty when ExecuteBatch returns, even on failure; the
// first failing set is reported as a *BatchError and the sets after it are
// dropped.
func (s *Statement) ExecuteBatch(ctx context.Context) error {
	if s.closed {
		return ErrStatementClosed
	}
	batch := s.batch
	s.batch = nil
	for i, args := range batch {
		if _, err := s.stmt.ExecContext(ctx, args...); err != nil {
			return &BatchError{Query: s.query, Index: i, Err: err}
		}
	}
	return nil
}

// Exec executes the statement immediately, bypassing the queue.
func (s *Statement) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}
	return s.stmt.ExecContext(ctx, args...)
}

// Close releases the prepared statement. Queued parameter sets are
// discarded. Closing twice is a no-op.
func (s *Statement) Close() error {
	s.batch = nil
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stmt.Close()
}
