// Package statements groups prepared statements that share one database
// connection so their queued batches can be executed together and their
// resources released together.
//
// A Collection is bound to a connection (usually a *sqlx.Conn). Statements
// are created through the collection, either as generic statements with
// Prepare or as integer-keyed statements with PrepareInt. Callers queue
// parameter sets on each statement with AddBatch, call
// Collection.ExecuteBatch as often as needed, and finish with
// Collection.Close.
//
// ExecuteBatch stops at the first failing statement and returns its error.
// Close never returns an error: every statement is flushed (when requested)
// and closed in registration order, and failures are handed to the
// collection's ErrorSink instead.
//
// A Collection is not safe for concurrent use.
package statements
