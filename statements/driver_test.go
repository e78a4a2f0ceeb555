package statements

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
)

// --- Fault-injecting in-test driver ------------------------------------------

// faults configures per-query failures and records every driver call as
// "op:query" in the order it happened.
type faults struct {
	mu         sync.Mutex
	prepareErr map[string]error
	execErr    map[string]error
	closeErr   map[string]error
	calls      []string
}

func newFaults() *faults {
	return &faults{
		prepareErr: make(map[string]error),
		execErr:    make(map[string]error),
		closeErr:   make(map[string]error),
	}
}

func (f *faults) record(op, query string, errs map[string]error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+query)
	return errs[query]
}

func (f *faults) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *faults) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type faultConnector struct{ f *faults }

func (c *faultConnector) Connect(context.Context) (driver.Conn, error) { return &faultConn{f: c.f}, nil }
func (c *faultConnector) Driver() driver.Driver                        { return faultDriver{} }

type faultDriver struct{}

func (faultDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("faultDriver.Open should not be called; use sql.OpenDB with connector")
}

type faultConn struct{ f *faults }

func (c *faultConn) Prepare(query string) (driver.Stmt, error) {
	if err := c.f.record("prepare", query, c.f.prepareErr); err != nil {
		return nil, err
	}
	return &faultStmt{f: c.f, query: query}, nil
}
func (c *faultConn) Close() error              { return nil }
func (c *faultConn) Begin() (driver.Tx, error) { return nil, errors.New("faultConn: transactions not supported") }

type faultStmt struct {
	f     *faults
	query string
}

func (s *faultStmt) Close() error  { return s.f.record("close", s.query, s.f.closeErr) }
func (s *faultStmt) NumInput() int { return -1 }

func (s *faultStmt) Exec(args []driver.Value) (driver.Result, error) {
	if err := s.f.record("exec", s.query, s.f.execErr); err != nil {
		return nil, err
	}
	return driver.RowsAffected(1), nil
}

func (s *faultStmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, errors.New("faultStmt: queries not supported")
}

// newFaultConn returns a dedicated connection backed by the fault driver.
func newFaultConn(t *testing.T, f *faults) *sqlx.Conn {
	t.Helper()
	db := sqlx.NewDb(sql.OpenDB(&faultConnector{f: f}), "fault")
	conn, err := db.Connx(context.Background())
	if err != nil {
		t.Fatalf("Connx: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		db.Close()
	})
	return conn
}

// sinkRecorder collects the failures reported by Close.
type sinkRecorder struct {
	errs []*TeardownError
}

func (r *sinkRecorder) Sink() ErrorSink {
	return func(err *TeardownError) {
		r.errs = append(r.errs, err)
	}
}
