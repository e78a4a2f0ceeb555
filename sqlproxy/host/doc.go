// Package host serves statement sessions to remote callers through a small
// JSON request/response protocol.
//
// Each session reserves one connection from the database pool and owns the
// statement collection registered on it. Requests are SQLRequest values
// from the types package:
//
//   - open_session: reserve a connection; returns session_id.
//   - prepare / prepare_int: register a generic or integer-keyed statement
//     in the session; returns stmt_id.
//   - add_batch: queue rows (generic) or keys (integer-keyed) on a statement;
//     returns the number pending on it.
//   - execute_batch: run every pending batch in registration order, stopping
//     at the first failure.
//   - close_session: close all statements (flushing first when commit is
//     set) and release the connection. Statement failures during close go to
//     the session's error sink and are never returned to the caller.
//   - list_sessions: report open sessions and their statement counts.
//
// Operational errors are returned inside the response payload's error
// field; HandleRequest itself only fails when a response cannot be encoded.
//
// Requests for the same session are serialized. Sessions abandoned by their
// callers are released without flushing by Shutdown.
package host
