package statements

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Collection methods called after Close.
	ErrClosed = errors.New("statements: collection is closed")

	// ErrStatementClosed is returned when executing a statement that has
	// already been closed.
	ErrStatementClosed = errors.New("statements: statement is closed")
)

// BatchError reports the queued parameter set that failed during
// ExecuteBatch. Sets queued after it were discarded.
type BatchError struct {
	Query string
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("statements: batch entry %d of %q failed: %v", e.Index, e.Query, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Phase names the teardown step that failed.
type Phase string

const (
	PhaseFlush Phase = "flush"
	PhaseClose Phase = "close"
)

// TeardownError describes one statement failure during Collection.Close.
type TeardownError struct {
	// Index is the statement's position in registration order.
	Index       int
	Query       string
	Fingerprint uint64
	Phase       Phase
	Err         error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("statements: %s of statement %d (%016x) failed: %v", e.Phase, e.Index, e.Fingerprint, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
