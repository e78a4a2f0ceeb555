package stmtbatchgo

import (
	"context"

	"github.com/tomyedwab/stmtbatch/sqlproxy/types"
)

// Session is a remote statement collection.
type Session struct {
	client *Client
	ID     string
}

// Prepare registers a generic statement and returns its ID.
func (s *Session) Prepare(ctx context.Context, sql string) (string, error) {
	return s.prepare(ctx, "prepare", sql)
}

// PrepareInt registers an integer-keyed statement and returns its ID.
func (s *Session) PrepareInt(ctx context.Context, sql string) (string, error) {
	return s.prepare(ctx, "prepare_int", sql)
}

func (s *Session) prepare(ctx context.Context, command, sql string) (string, error) {
	if sql == "" {
		return "", newError(ErrorTypeValidation, "sql is required", nil)
	}
	var resp types.GeneralResponse
	err := s.client.Do(ctx, types.SQLRequest{Command: command, SessionID: s.ID, SQL: sql}, &resp)
	if err != nil {
		return "", err
	}
	return resp.StmtID, nil
}

// AddRows queues parameter sets on a generic statement and returns how many
// are pending on it.
func (s *Session) AddRows(ctx context.Context, stmtID string, rows ...[]interface{}) (int, error) {
	var resp types.BatchResponse
	err := s.client.Do(ctx, types.SQLRequest{Command: "add_batch", SessionID: s.ID, StmtID: stmtID, Rows: rows}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Pending, nil
}

// AddKeys queues keys on an integer-keyed statement.
func (s *Session) AddKeys(ctx context.Context, stmtID string, keys ...int64) (int, error) {
	var resp types.BatchResponse
	err := s.client.Do(ctx, types.SQLRequest{Command: "add_batch", SessionID: s.ID, StmtID: stmtID, Keys: keys}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Pending, nil
}

// ExecuteBatch runs every pending batch of the session in registration
// order, stopping at the first failure.
func (s *Session) ExecuteBatch(ctx context.Context) error {
	return s.client.Do(ctx, types.SQLRequest{Command: "execute_batch", SessionID: s.ID}, nil)
}

// Close releases the session. With commit set, pending batches are flushed
// first.
func (s *Session) Close(ctx context.Context, commit bool) error {
	return s.client.Do(ctx, types.SQLRequest{Command: "close_session", SessionID: s.ID, Commit: commit}, nil)
}
