// Package stmtbatchgo is a Go client for the statement host's HTTP API.
//
// A session on the host owns one database connection and the prepared
// statements registered on it. Parameter sets are queued remotely and run
// either with Session.ExecuteBatch, which stops at the first failure, or
// when the session is closed with commit set.
//
// # Basic Usage
//
//	client := stmtbatchgo.NewClient("http://localhost:8080", stmtbatchgo.WithAccessToken(token))
//
//	session, err := client.OpenSession(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	insert, err := session.Prepare(ctx, "INSERT INTO users (id, name) VALUES (?, ?)")
//	if err != nil {
//		session.Close(ctx, false)
//		log.Fatal(err)
//	}
//	session.AddRows(ctx, insert, []any{1, "ada"}, []any{2, "grace"})
//
//	// Flush the pending rows and release the connection.
//	if err := session.Close(ctx, true); err != nil {
//		log.Fatal(err)
//	}
//
// Teardown failures are not reported to the client; they are logged (and
// optionally audited) on the host.
//
// # Error Handling
//
// Every method returns an *Error whose Type tells network, authentication,
// validation and API failures apart:
//
//	if stmtbatchgo.IsAuthenticationError(err) {
//		// obtain a new token
//	}
package stmtbatchgo
