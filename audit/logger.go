package audit

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/stmtbatch/statements"
)

// TeardownFailure is a persisted statement failure from a session close.
type TeardownFailure struct {
	ID             string `db:"id"`
	SessionID      string `db:"session_id"`
	StatementIndex int    `db:"statement_index"`
	Fingerprint    string `db:"fingerprint"`
	Phase          string `db:"phase"`
	Message        string `db:"message"`
	Timestamp      int64  `db:"timestamp"`
}

// Queries use ? placeholders and are rebound for the connected driver.
const (
	insertFailureQuery = `
		INSERT INTO teardown_failures (
			id, session_id, statement_index, fingerprint, phase, message, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)`
	sessionFailuresQuery   = "SELECT * FROM teardown_failures WHERE session_id = ? ORDER BY statement_index, phase DESC"
	recentFailuresQuery    = "SELECT * FROM teardown_failures ORDER BY timestamp DESC LIMIT ?"
	deleteOldFailuresQuery = "DELETE FROM teardown_failures WHERE timestamp < ?"
)

// Logger records teardown failures so they stay visible after the session
// that produced them is gone.
type Logger struct {
	db *sqlx.DB
}

// NewLogger creates a new audit logger instance
func NewLogger(db *sqlx.DB) (*Logger, error) {
	if err := DBInit(db); err != nil {
		return nil, err
	}
	return &Logger{
		db: db,
	}, nil
}

// DBInit initializes the teardown failures table
func DBInit(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS teardown_failures (
		id VARCHAR(36) PRIMARY KEY,
		session_id VARCHAR(191) NOT NULL,
		statement_index INTEGER NOT NULL,
		fingerprint VARCHAR(16) NOT NULL,
		phase VARCHAR(8) NOT NULL,
		message TEXT NOT NULL,
		timestamp BIGINT NOT NULL
	)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_teardown_failures_session_id ON teardown_failures(session_id)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_teardown_failures_timestamp ON teardown_failures(timestamp)`)
	return err
}

// fingerprintHex formats a statement fingerprint the way log lines do.
func fingerprintHex(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// LogTeardownFailure stores one failure reported for sessionID.
func (l *Logger) LogTeardownFailure(sessionID string, failure *statements.TeardownError) error {
	_, err := l.db.Exec(l.db.Rebind(insertFailureQuery),
		uuid.New().String(),
		sessionID,
		failure.Index,
		fingerprintHex(failure.Fingerprint),
		string(failure.Phase),
		failure.Err.Error(),
		time.Now().UTC().Unix(),
	)
	return err
}

// Sink returns an error sink that stores failures for sessionID. A failure
// that cannot be stored is written to the standard logger instead.
func (l *Logger) Sink(sessionID string) statements.ErrorSink {
	return func(failure *statements.TeardownError) {
		if err := l.LogTeardownFailure(sessionID, failure); err != nil {
			log.Printf("Failed to record teardown failure for session %s: %v (original: %v)", sessionID, err, failure)
		}
	}
}

// GetEventsBySession retrieves the failures recorded for a session, in
// statement order.
func (l *Logger) GetEventsBySession(sessionID string) ([]TeardownFailure, error) {
	var events []TeardownFailure
	err := l.db.Select(&events, l.db.Rebind(sessionFailuresQuery), sessionID)
	return events, err
}

// GetRecentEvents retrieves the most recent failures
func (l *Logger) GetRecentEvents(limit int) ([]TeardownFailure, error) {
	var events []TeardownFailure
	err := l.db.Select(&events, l.db.Rebind(recentFailuresQuery), limit)
	return events, err
}

// DeleteOldEvents deletes failures older than the specified duration
func (l *Logger) DeleteOldEvents(olderThan time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-olderThan).Unix()
	result, err := l.db.Exec(l.db.Rebind(deleteOldFailuresQuery), threshold)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// String renders a failure for command-line output.
func (f TeardownFailure) String() string {
	return f.SessionID + "#" + strconv.Itoa(f.StatementIndex) + " " + f.Phase + " " + f.Fingerprint + ": " + f.Message
}
