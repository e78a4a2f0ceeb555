package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomyedwab/stmtbatch/database"
	"github.com/tomyedwab/stmtbatch/statements"
)

// Report summarizes a finished load.
type Report struct {
	Statements int
	Queued     int
	// Failures holds what the statement collection suppressed on close.
	Failures []*statements.TeardownError
}

// Run executes plan in a fresh session of db. Statement teardown failures
// are passed to sink (if any) and collected in the report; errors from
// setup, registration or an explicit pre-close execution abort the load
// after releasing the session without flushing.
func Run(ctx context.Context, db *database.Database, plan *Plan, sink statements.ErrorSink) (*Report, error) {
	if err := db.Setup(ctx, plan.Setup...); err != nil {
		return nil, err
	}

	report := &Report{}
	collect := func(err *statements.TeardownError) {
		report.Failures = append(report.Failures, err)
	}
	session, err := db.OpenSession(ctx, statements.WithErrorSink(statements.MultiSink(sink, collect)))
	if err != nil {
		return nil, err
	}

	if err := queue(ctx, session.Statements(), plan, report); err != nil {
		return report, errors.Join(err, session.Close(ctx, false))
	}

	if plan.ExecuteBeforeClose {
		if err := session.Statements().ExecuteBatch(ctx); err != nil {
			err = fmt.Errorf("failed to execute batches: %w", err)
			return report, errors.Join(err, session.Close(ctx, false))
		}
	}

	if err := session.Close(ctx, plan.Commit); err != nil {
		return report, err
	}
	return report, nil
}

func queue(ctx context.Context, stmts *statements.Collection, plan *Plan, report *Report) error {
	for i, sp := range plan.Statements {
		if sp.IntKeyed() {
			stmt, err := stmts.PrepareInt(ctx, sp.SQL)
			if err != nil {
				return fmt.Errorf("%s: %w", sp.label(i), err)
			}
			for _, key := range sp.Keys {
				stmt.AddBatch(key)
			}
			report.Queued += len(sp.Keys)
		} else {
			stmt, err := stmts.Prepare(ctx, sp.SQL)
			if err != nil {
				return fmt.Errorf("%s: %w", sp.label(i), err)
			}
			for _, row := range sp.Rows {
				stmt.AddBatch(row...)
			}
			report.Queued += len(sp.Rows)
		}
		report.Statements++
	}
	return nil
}
