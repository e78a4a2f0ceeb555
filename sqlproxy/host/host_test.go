package host

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/stmtbatch/database"
	"github.com/tomyedwab/stmtbatch/sqlproxy/types"
	"github.com/tomyedwab/stmtbatch/statements"
)

func setupTestHost(t *testing.T, sinkFor SinkFactory) (*SQLHost, *database.Database) {
	dbPath := path.Join(t.TempDir(), "test_host.db")
	db, err := database.Connect("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	err = db.Setup(context.Background(),
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	h := NewSQLHost(db, sinkFor)
	t.Cleanup(func() {
		h.Shutdown(context.Background())
		db.Close()
	})
	return h, db
}

// call sends req to the host and decodes the response into resp.
func call(t *testing.T, h *SQLHost, req types.SQLRequest, resp interface{}) {
	t.Helper()
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	out, err := h.HandleRequest(context.Background(), payload)
	if err != nil {
		t.Fatalf("HandleRequest returned error: %v", err)
	}
	if err := json.Unmarshal(out, resp); err != nil {
		t.Fatalf("Failed to unmarshal response %s: %v", out, err)
	}
}

func openSession(t *testing.T, h *SQLHost) string {
	t.Helper()
	var resp types.GeneralResponse
	call(t, h, types.SQLRequest{Command: "open_session"}, &resp)
	if resp.Error != "" || resp.SessionID == "" {
		t.Fatalf("open_session failed: %+v", resp)
	}
	return resp.SessionID
}

func prepare(t *testing.T, h *SQLHost, sessionID, command, sql string) string {
	t.Helper()
	var resp types.GeneralResponse
	call(t, h, types.SQLRequest{Command: command, SessionID: sessionID, SQL: sql}, &resp)
	if resp.Error != "" || resp.StmtID == "" {
		t.Fatalf("%s failed: %+v", command, resp)
	}
	return resp.StmtID
}

func countUsers(t *testing.T, db *database.Database) int {
	var n int
	if err := db.GetDB().Get(&n, "SELECT COUNT(*) FROM users"); err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}
	return n
}

func TestSessionLifecycle(t *testing.T) {
	h, db := setupTestHost(t, nil)
	sessionID := openSession(t, h)

	insertID := prepare(t, h, sessionID, "prepare", "INSERT INTO users (id, name) VALUES (?, ?)")
	deleteID := prepare(t, h, sessionID, "prepare_int", "DELETE FROM users WHERE id = ?")

	var batch types.BatchResponse
	call(t, h, types.SQLRequest{
		Command:   "add_batch",
		SessionID: sessionID,
		StmtID:    insertID,
		Rows:      [][]interface{}{{1, "ada"}, {2, "grace"}, {3, "barbara"}},
	}, &batch)
	if batch.Error != "" || batch.Pending != 3 {
		t.Fatalf("add_batch failed: %+v", batch)
	}

	var general types.GeneralResponse
	call(t, h, types.SQLRequest{Command: "execute_batch", SessionID: sessionID}, &general)
	if general.Error != "" {
		t.Fatalf("execute_batch failed: %s", general.Error)
	}
	if got := countUsers(t, db); got != 3 {
		t.Fatalf("Expected 3 users, got %d", got)
	}

	call(t, h, types.SQLRequest{Command: "add_batch", SessionID: sessionID, StmtID: deleteID, Keys: []int64{2}}, &batch)
	if batch.Error != "" || batch.Pending != 1 {
		t.Fatalf("add_batch keys failed: %+v", batch)
	}

	var sessions types.SessionsResponse
	call(t, h, types.SQLRequest{Command: "list_sessions"}, &sessions)
	if len(sessions.Sessions) != 1 || sessions.Sessions[0].Statements != 2 {
		t.Fatalf("Unexpected sessions: %+v", sessions)
	}

	// Closing with commit flushes the pending delete.
	call(t, h, types.SQLRequest{Command: "close_session", SessionID: sessionID, Commit: true}, &general)
	if general.Error != "" {
		t.Fatalf("close_session failed: %s", general.Error)
	}
	if got := countUsers(t, db); got != 2 {
		t.Errorf("Expected 2 users after commit, got %d", got)
	}

	call(t, h, types.SQLRequest{Command: "execute_batch", SessionID: sessionID}, &general)
	if !strings.Contains(general.Error, "session not found") {
		t.Errorf("Expected session not found, got %q", general.Error)
	}
}

func TestCloseWithoutCommitDiscards(t *testing.T) {
	h, db := setupTestHost(t, nil)
	sessionID := openSession(t, h)
	insertID := prepare(t, h, sessionID, "prepare", "INSERT INTO users (id, name) VALUES (?, ?)")

	var batch types.BatchResponse
	call(t, h, types.SQLRequest{Command: "add_batch", SessionID: sessionID, StmtID: insertID, Rows: [][]interface{}{{1, "ada"}}}, &batch)

	var general types.GeneralResponse
	call(t, h, types.SQLRequest{Command: "close_session", SessionID: sessionID}, &general)
	if general.Error != "" {
		t.Fatalf("close_session failed: %s", general.Error)
	}
	if got := countUsers(t, db); got != 0 {
		t.Errorf("Expected no users, got %d", got)
	}
}

func TestExecuteBatchReportsFirstFailure(t *testing.T) {
	h, db := setupTestHost(t, nil)
	sessionID := openSession(t, h)
	first := prepare(t, h, sessionID, "prepare", "INSERT INTO users (id, name) VALUES (?, ?)")
	second := prepare(t, h, sessionID, "prepare", "INSERT INTO users (id, name) VALUES (?, 'second')")

	var batch types.BatchResponse
	call(t, h, types.SQLRequest{Command: "add_batch", SessionID: sessionID, StmtID: first, Rows: [][]interface{}{{1, "ada"}, {1, "dup"}}}, &batch)
	call(t, h, types.SQLRequest{Command: "add_batch", SessionID: sessionID, StmtID: second, Rows: [][]interface{}{{5}}}, &batch)

	var general types.GeneralResponse
	call(t, h, types.SQLRequest{Command: "execute_batch", SessionID: sessionID}, &general)
	if !strings.Contains(general.Error, "UNIQUE constraint failed") {
		t.Fatalf("Expected constraint error, got %q", general.Error)
	}
	// The second statement never ran.
	if got := countUsers(t, db); got != 1 {
		t.Errorf("Expected 1 user, got %d", got)
	}
}

func TestTeardownFailuresReachSink(t *testing.T) {
	var failures []*statements.TeardownError
	var sinkSession string
	h, _ := setupTestHost(t, func(sessionID string) statements.ErrorSink {
		sinkSession = sessionID
		return func(err *statements.TeardownError) {
			failures = append(failures, err)
		}
	})
	sessionID := openSession(t, h)
	insertID := prepare(t, h, sessionID, "prepare", "INSERT INTO users (id, name) VALUES (?, ?)")
	prepare(t, h, sessionID, "prepare", "SELECT COUNT(*) FROM users")

	var batch types.BatchResponse
	call(t, h, types.SQLRequest{Command: "add_batch", SessionID: sessionID, StmtID: insertID, Rows: [][]interface{}{{1, nil}}}, &batch)

	var general types.GeneralResponse
	call(t, h, types.SQLRequest{Command: "close_session", SessionID: sessionID, Commit: true}, &general)
	if general.Error != "" {
		t.Fatalf("close_session should not surface teardown failures: %s", general.Error)
	}
	if sinkSession != sessionID {
		t.Errorf("Sink created for %q, want %q", sinkSession, sessionID)
	}
	if len(failures) != 1 || failures[0].Phase != statements.PhaseFlush || failures[0].Index != 0 {
		t.Fatalf("Unexpected failures: %v", failures)
	}
}

func TestRequestErrors(t *testing.T) {
	h, _ := setupTestHost(t, nil)
	sessionID := openSession(t, h)
	intID := prepare(t, h, sessionID, "prepare_int", "DELETE FROM users WHERE id = ?")

	cases := []struct {
		name string
		req  types.SQLRequest
		want string
	}{
		{"unknown command", types.SQLRequest{Command: "explode"}, "unknown command"},
		{"unknown session", types.SQLRequest{Command: "prepare", SessionID: "nope", SQL: "SELECT 1"}, "session not found"},
		{"bad sql", types.SQLRequest{Command: "prepare", SessionID: sessionID, SQL: "SELEC 1"}, "prepare failed"},
		{"unknown statement", types.SQLRequest{Command: "add_batch", SessionID: sessionID, StmtID: "nope"}, "statement not found"},
		{"rows for int statement", types.SQLRequest{Command: "add_batch", SessionID: sessionID, StmtID: intID, Rows: [][]interface{}{{1}}}, "takes keys"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp types.GeneralResponse
			call(t, h, tc.req, &resp)
			if !strings.Contains(resp.Error, tc.want) {
				t.Errorf("Expected error containing %q, got %q", tc.want, resp.Error)
			}
		})
	}

	out, err := h.HandleRequest(context.Background(), []byte("{"))
	if err != nil {
		t.Fatalf("HandleRequest returned error: %v", err)
	}
	if !strings.Contains(string(out), "failed to unmarshal request") {
		t.Errorf("Unexpected response to malformed payload: %s", out)
	}
}

func TestConvertArgs(t *testing.T) {
	args := convertArgs([]interface{}{float64(3), 2.5, "x", nil})
	if v, ok := args[0].(int64); !ok || v != 3 {
		t.Errorf("Expected int64(3), got %#v", args[0])
	}
	if v, ok := args[1].(float64); !ok || v != 2.5 {
		t.Errorf("Expected 2.5, got %#v", args[1])
	}
	if args[2] != "x" || args[3] != nil {
		t.Errorf("Unexpected passthrough values: %#v", args[2:])
	}
}

func TestShutdownClosesSessionsWithoutFlush(t *testing.T) {
	h, db := setupTestHost(t, nil)
	first := openSession(t, h)
	second := openSession(t, h)
	insertID := prepare(t, h, first, "prepare", "INSERT INTO users (id, name) VALUES (?, ?)")
	deleteID := prepare(t, h, second, "prepare_int", "DELETE FROM users WHERE id = ?")

	var batch types.BatchResponse
	call(t, h, types.SQLRequest{Command: "add_batch", SessionID: first, StmtID: insertID, Rows: [][]interface{}{{1, "ada"}, {2, "grace"}}}, &batch)
	call(t, h, types.SQLRequest{Command: "add_batch", SessionID: second, StmtID: deleteID, Keys: []int64{1}}, &batch)

	h.Shutdown(context.Background())

	if got := countUsers(t, db); got != 0 {
		t.Errorf("Expected pending rows to be discarded, got %d users", got)
	}
	if inUse := db.GetDB().Stats().InUse; inUse != 0 {
		t.Errorf("Expected all session connections to be released, %d still in use", inUse)
	}

	var sessions types.SessionsResponse
	call(t, h, types.SQLRequest{Command: "list_sessions"}, &sessions)
	if sessions.Error != "" || len(sessions.Sessions) != 0 {
		t.Errorf("Expected no sessions after shutdown, got %+v", sessions)
	}

	var general types.GeneralResponse
	call(t, h, types.SQLRequest{Command: "execute_batch", SessionID: first}, &general)
	if !strings.Contains(general.Error, "session not found") {
		t.Errorf("Expected session not found, got %q", general.Error)
	}
}
