package statements

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/jmoiron/sqlx"
)

// IntStatement is a prepared statement with a single integer parameter,
// such as a delete or lookup by primary key. Queued keys are stored
// unboxed and bound through one reused argument slot.
type IntStatement struct {
	stmt        *sqlx.Stmt
	query       string
	fingerprint uint64
	keys        []int64
	arg         [1]any
	closed      bool
}

// NewIntStatement prepares query on conn. Most callers should use
// Collection.PrepareInt so the statement is closed with the collection.
func NewIntStatement(ctx context.Context, conn Preparer, query string) (*IntStatement, error) {
	stmt, err := conn.PreparexContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("statements: failed to prepare int statement: %w", err)
	}
	return &IntStatement{
		stmt:        stmt,
		query:       query,
		fingerprint: xxhash.Sum64String(query),
	}, nil
}

// Query returns the SQL the statement was prepared from.
func (s *IntStatement) Query() string {
	return s.query
}

// Fingerprint returns a stable hash of the statement's SQL.
func (s *IntStatement) Fingerprint() uint64 {
	return s.fingerprint
}

// AddBatch queues key for the next ExecuteBatch.
func (s *IntStatement) AddBatch(key int64) {
	s.keys = append(s.keys, key)
}

// Pending returns the number of queued keys.
func (s *IntStatement) Pending() int {
	return len(s.keys)
}

// ClearBatch drops every queued key without executing it.
func (s *IntStatement) ClearBatch() {
	s.keys = nil
}

// ExecuteBatch executes the statement once per queued key. It follows the
// same queue rules as Statement.ExecuteBatch.
func (s *IntStatement) ExecuteBatch(ctx context.Context) error {
	if s.closed {
		return ErrStatementClosed
	}
	keys := s.keys
	s.keys = nil
	for i, key := range keys {
		if _, err := s.exec(ctx, key); err != nil {
			return &BatchError{Query: s.query, Index: i, Err: err}
		}
	}
	return nil
}

// Exec executes the statement immediately with key.
func (s *IntStatement) Exec(ctx context.Context, key int64) (sql.Result, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}
	return s.exec(ctx, key)
}

func (s *IntStatement) exec(ctx context.Context, key int64) (sql.Result, error) {
	s.arg[0] = key
	return s.stmt.ExecContext(ctx, s.arg[:]...)
}

// Close releases the prepared statement and discards queued keys.
func (s *IntStatement) Close() error {
	s.keys = nil
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stmt.Close()
}
