package statements

import (
	"context"
	"fmt"
)

// handle is what a Collection stores for every registered statement.
type handle interface {
	Batcher
	Query() string
	Fingerprint() uint64
}

var (
	_ handle = (*Statement)(nil)
	_ handle = (*IntStatement)(nil)
)

// Collection owns the statements prepared through it on a single
// connection. The connection is borrowed and is never closed by the
// collection.
type Collection struct {
	conn   Preparer
	stmts  []handle
	sink   ErrorSink
	closed bool
}

type Option func(*Collection)

// WithErrorSink sets where Close reports per-statement failures. The
// default is SlogSink(nil).
func WithErrorSink(sink ErrorSink) Option {
	return func(c *Collection) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// New returns an open, empty collection bound to conn.
func New(conn Preparer, opts ...Option) *Collection {
	c := &Collection{
		conn: conn,
		sink: SlogSink(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare prepares query on the collection's connection and registers the
// resulting statement. On error nothing is registered.
func (c *Collection) Prepare(ctx context.Context, query string) (*Statement, error) {
	if c.closed {
		return nil, ErrClosed
	}
	stmt, err := c.conn.PreparexContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("statements: failed to prepare statement: %w", err)
	}
	s := newStatement(stmt, query)
	c.stmts = append(c.stmts, s)
	return s, nil
}

// PrepareInt is like Prepare but returns an integer-keyed statement.
func (c *Collection) PrepareInt(ctx context.Context, query string) (*IntStatement, error) {
	if c.closed {
		return nil, ErrClosed
	}
	s, err := NewIntStatement(ctx, c.conn, query)
	if err != nil {
		return nil, err
	}
	c.stmts = append(c.stmts, s)
	return s, nil
}

// Len returns the number of registered statements.
func (c *Collection) Len() int {
	return len(c.stmts)
}

// Closed reports whether Close has been called.
func (c *Collection) Closed() bool {
	return c.closed
}

// ExecuteBatch executes the pending batch of every statement in
// registration order. It stops at the first failure and returns it;
// statements after the failing one are not executed.
func (c *Collection) ExecuteBatch(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	for _, s := range c.stmts {
		if err := s.ExecuteBatch(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every statement in registration order. When performCommit
// is true each statement's pending batch is executed first; otherwise
// pending batches are discarded. A failing flush does not prevent the
// close attempt, and no failure stops the iteration: each one is passed to
// the error sink. Calling Close again does nothing.
func (c *Collection) Close(ctx context.Context, performCommit bool) {
	if c.closed {
		return
	}
	c.closed = true
	for i, s := range c.stmts {
		if performCommit {
			if err := s.ExecuteBatch(ctx); err != nil {
				c.report(i, s, PhaseFlush, err)
			}
		}
		if err := s.Close(); err != nil {
			c.report(i, s, PhaseClose, err)
		}
	}
}

func (c *Collection) report(index int, s handle, phase Phase, err error) {
	c.sink(&TeardownError{
		Index:       index,
		Query:       s.Query(),
		Fingerprint: s.Fingerprint(),
		Phase:       phase,
		Err:         err,
	})
}
