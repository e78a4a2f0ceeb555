// Package database owns the process-wide SQL connection pool and hands out
// sessions: one dedicated connection plus the collection of prepared
// statements registered on it. Statement bookkeeping itself lives in the
// statements package; this package only ties its lifetime to a connection.
package database
