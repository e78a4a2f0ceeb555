package types

// --- JSON structures for the statement host protocol ---

// SQLRequest defines the structure for requests sent to the host.
type SQLRequest struct {
	Command   string          `json:"command"`
	SessionID string          `json:"session_id,omitempty"`
	SQL       string          `json:"sql,omitempty"`
	StmtID    string          `json:"stmt_id,omitempty"`
	Rows      [][]interface{} `json:"rows,omitempty"` // Parameter sets for a generic statement
	Keys      []int64         `json:"keys,omitempty"` // Keys for an integer statement
	Commit    bool            `json:"commit,omitempty"`
}

// GeneralResponse is used for commands that only return identifiers (open_session, prepare, prepare_int) or nothing at all.
type GeneralResponse struct {
	SessionID string `json:"session_id,omitempty"` // For 'open_session', host returns a session ID
	StmtID    string `json:"stmt_id,omitempty"`    // For 'prepare' and 'prepare_int', host returns a statement ID
	Error     string `json:"error,omitempty"`
}

// BatchResponse defines the structure for responses from 'add_batch' commands.
type BatchResponse struct {
	Pending int    `json:"pending"`
	Error   string `json:"error,omitempty"`
}

// SessionInfo describes one open session.
type SessionInfo struct {
	SessionID  string `json:"session_id"`
	Statements int    `json:"statements"`
}

// SessionsResponse defines the structure for responses from 'list_sessions' commands.
type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Error    string        `json:"error,omitempty"`
}
