package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tomyedwab/stmtbatch/database"
	"github.com/tomyedwab/stmtbatch/sqlproxy/types"
	"github.com/tomyedwab/stmtbatch/statements"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrStatementNotFound = errors.New("statement not found")
)

// SinkFactory returns the error sink for a newly opened session.
type SinkFactory func(sessionID string) statements.ErrorSink

// hostSession serializes access to one session's statement collection.
type hostSession struct {
	id      string
	mu      sync.Mutex
	session *database.Session
	stmts   map[string]any // *statements.Statement or *statements.IntStatement
}

// SQLHost handles statement requests against a database.
// It manages sessions, each owning one connection and its prepared statements.
type SQLHost struct {
	db       *database.Database
	sinkFor  SinkFactory
	sessions map[string]*hostSession
	mu       sync.Mutex
}

// NewSQLHost creates a new SQLHost instance. When sinkFor is nil, teardown
// failures go to the default slog logger.
func NewSQLHost(db *database.Database, sinkFor SinkFactory) *SQLHost {
	if sinkFor == nil {
		sinkFor = func(string) statements.ErrorSink { return statements.SlogSink(nil) }
	}
	return &SQLHost{
		db:       db,
		sinkFor:  sinkFor,
		sessions: make(map[string]*hostSession),
	}
}

// HandleRequest processes a raw request payload and returns a raw response payload.
func (h *SQLHost) HandleRequest(ctx context.Context, requestPayload []byte) ([]byte, error) {
	var req types.SQLRequest
	if err := json.Unmarshal(requestPayload, &req); err != nil {
		return marshalErrorResponse(fmt.Sprintf("failed to unmarshal request: %v", err))
	}

	var responseData interface{}
	var opErr error

	switch req.Command {
	case "open_session":
		responseData, opErr = h.handleOpenSession(ctx)
	case "prepare":
		responseData, opErr = h.handlePrepare(ctx, &req, false)
	case "prepare_int":
		responseData, opErr = h.handlePrepare(ctx, &req, true)
	case "add_batch":
		responseData, opErr = h.handleAddBatch(&req)
	case "execute_batch":
		responseData, opErr = h.handleExecuteBatch(ctx, &req)
	case "close_session":
		responseData, opErr = h.handleCloseSession(ctx, &req)
	case "list_sessions":
		responseData, opErr = h.handleListSessions()
	default:
		opErr = fmt.Errorf("unknown command: %s", req.Command)
	}

	if opErr != nil {
		return marshalErrorResponse(opErr.Error())
	}

	return json.Marshal(responseData)
}

func marshalErrorResponse(errMsg string) ([]byte, error) {
	resp := types.GeneralResponse{Error: errMsg}
	payload, err := json.Marshal(resp)
	if err != nil {
		return []byte(fmt.Sprintf(`{"error":"critical: failed to marshal error response for: %s"}`, errMsg)),
			fmt.Errorf("failed to marshal error response for '%s': %w", errMsg, err)
	}
	// The operational error travels in the payload.
	return payload, nil
}

// lookup finds a session and locks it. The caller must unlock it.
func (h *SQLHost) lookup(sessionID string) (*hostSession, error) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.mu.Lock()
	return s, nil
}

func (h *SQLHost) handleOpenSession(ctx context.Context) (types.GeneralResponse, error) {
	sessionID := uuid.NewString()
	session, err := h.db.OpenSession(ctx, statements.WithErrorSink(h.sinkFor(sessionID)))
	if err != nil {
		return types.GeneralResponse{}, fmt.Errorf("open session failed: %w", err)
	}

	h.mu.Lock()
	h.sessions[sessionID] = &hostSession{
		id:      sessionID,
		session: session,
		stmts:   make(map[string]any),
	}
	h.mu.Unlock()
	return types.GeneralResponse{SessionID: sessionID}, nil
}

func (h *SQLHost) handlePrepare(ctx context.Context, req *types.SQLRequest, intKeyed bool) (types.GeneralResponse, error) {
	s, err := h.lookup(req.SessionID)
	if err != nil {
		return types.GeneralResponse{}, err
	}
	defer s.mu.Unlock()

	var stmt any
	if intKeyed {
		stmt, err = s.session.Statements().PrepareInt(ctx, req.SQL)
	} else {
		stmt, err = s.session.Statements().Prepare(ctx, req.SQL)
	}
	if err != nil {
		return types.GeneralResponse{}, fmt.Errorf("prepare failed: %w", err)
	}

	stmtID := uuid.NewString()
	s.stmts[stmtID] = stmt
	return types.GeneralResponse{StmtID: stmtID}, nil
}

func (h *SQLHost) handleAddBatch(req *types.SQLRequest) (types.BatchResponse, error) {
	s, err := h.lookup(req.SessionID)
	if err != nil {
		return types.BatchResponse{}, err
	}
	defer s.mu.Unlock()

	stmt, ok := s.stmts[req.StmtID]
	if !ok {
		return types.BatchResponse{}, fmt.Errorf("%w: %s", ErrStatementNotFound, req.StmtID)
	}

	switch st := stmt.(type) {
	case *statements.Statement:
		if len(req.Keys) > 0 {
			return types.BatchResponse{}, fmt.Errorf("statement %s takes rows, not keys", req.StmtID)
		}
		for _, row := range req.Rows {
			st.AddBatch(convertArgs(row)...)
		}
		return types.BatchResponse{Pending: st.Pending()}, nil
	case *statements.IntStatement:
		if len(req.Rows) > 0 {
			return types.BatchResponse{}, fmt.Errorf("statement %s takes keys, not rows", req.StmtID)
		}
		for _, key := range req.Keys {
			st.AddBatch(key)
		}
		return types.BatchResponse{Pending: st.Pending()}, nil
	}
	return types.BatchResponse{}, fmt.Errorf("unsupported statement type %T", stmt)
}

func (h *SQLHost) handleExecuteBatch(ctx context.Context, req *types.SQLRequest) (types.GeneralResponse, error) {
	s, err := h.lookup(req.SessionID)
	if err != nil {
		return types.GeneralResponse{}, err
	}
	defer s.mu.Unlock()

	if err := s.session.Statements().ExecuteBatch(ctx); err != nil {
		return types.GeneralResponse{}, fmt.Errorf("execute batch failed: %w", err)
	}
	return types.GeneralResponse{}, nil
}

func (h *SQLHost) handleCloseSession(ctx context.Context, req *types.SQLRequest) (types.GeneralResponse, error) {
	h.mu.Lock()
	s, exists := h.sessions[req.SessionID]
	if exists {
		delete(h.sessions, req.SessionID)
	}
	h.mu.Unlock()

	if !exists {
		return types.GeneralResponse{}, fmt.Errorf("%w: %s", ErrSessionNotFound, req.SessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Close(ctx, req.Commit); err != nil {
		return types.GeneralResponse{}, fmt.Errorf("close session failed: %w", err)
	}
	return types.GeneralResponse{}, nil
}

func (h *SQLHost) handleListSessions() (types.SessionsResponse, error) {
	h.mu.Lock()
	open := make([]*hostSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		open = append(open, s)
	}
	h.mu.Unlock()

	infos := make([]types.SessionInfo, 0, len(open))
	for _, s := range open {
		s.mu.Lock()
		infos = append(infos, types.SessionInfo{SessionID: s.id, Statements: s.session.Statements().Len()})
		s.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].SessionID < infos[j].SessionID })
	return types.SessionsResponse{Sessions: infos}, nil
}

// Shutdown closes every open session without flushing pending batches.
func (h *SQLHost) Shutdown(ctx context.Context) {
	h.mu.Lock()
	open := h.sessions
	h.sessions = make(map[string]*hostSession)
	h.mu.Unlock()

	for _, s := range open {
		s.mu.Lock()
		if err := s.session.Close(ctx, false); err != nil {
			slog.Error("Failed to close session", "session_id", s.id, "error", err)
		}
		s.mu.Unlock()
	}
}

// convertArgs turns integral JSON numbers back into int64 so they bind as
// integers rather than floats.
func convertArgs(row []interface{}) []interface{} {
	args := make([]interface{}, len(row))
	for i, v := range row {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			args[i] = int64(f)
			continue
		}
		args[i] = v
	}
	return args
}
