package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/stmtbatch/statements"
)

type Database struct {
	db         *sqlx.DB
	driverName string
}

// Connect opens the connection pool and verifies it with a ping.
func Connect(driverName string, dataSourceName string) (*Database, error) {
	db, err := sqlx.Connect(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	return &Database{db: db, driverName: driverName}, nil
}

// Setup runs schema statements in a single transaction.
func (db *Database) Setup(ctx context.Context, schema ...string) error {
	if len(schema) == 0 {
		return nil
	}

	tx, err := db.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run setup statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Session is a dedicated connection together with the statements prepared
// on it.
type Session struct {
	conn  *sqlx.Conn
	stmts *statements.Collection
}

// OpenSession reserves a connection from the pool. The caller must call
// Session.Close to return it.
func (db *Database) OpenSession(ctx context.Context, opts ...statements.Option) (*Session, error) {
	conn, err := db.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve connection: %w", err)
	}
	return &Session{
		conn:  conn,
		stmts: statements.New(conn, opts...),
	}, nil
}

// Statements returns the session's statement collection.
func (s *Session) Statements() *statements.Collection {
	return s.stmts
}

func (s *Session) Conn() *sqlx.Conn {
	return s.conn
}

// Close closes every statement of the session, flushing pending batches
// first when commit is true, and then returns the connection to the pool.
// Statement failures go to the collection's error sink; only a failure to
// release the connection is returned.
func (s *Session) Close(ctx context.Context, commit bool) error {
	s.stmts.Close(ctx, commit)
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to release connection: %w", err)
	}
	return nil
}

func (db *Database) DriverName() string {
	return db.driverName
}

func (db *Database) GetDB() *sqlx.DB {
	return db.db
}

func (db *Database) Close() error {
	return db.db.Close()
}
