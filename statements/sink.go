package statements

import (
	"fmt"
	"log"
	"log/slog"
)

// ErrorSink receives the failures Collection.Close suppresses.
type ErrorSink func(err *TeardownError)

// LogSink writes each failure to logger, or to the standard logger when
// logger is nil.
func LogSink(logger *log.Logger) ErrorSink {
	if logger == nil {
		logger = log.Default()
	}
	return func(err *TeardownError) {
		logger.Printf("%v (query: %s)", err, err.Query)
	}
}

// SlogSink logs each failure as a structured error record. A nil logger
// means slog.Default() at the time of the failure.
func SlogSink(logger *slog.Logger) ErrorSink {
	return func(err *TeardownError) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.Error("Statement teardown failed",
			"index", err.Index,
			"phase", string(err.Phase),
			"fingerprint", fmt.Sprintf("%016x", err.Fingerprint),
			"query", err.Query,
			"error", err.Err,
		)
	}
}

// MultiSink forwards every failure to each non-nil sink in order.
func MultiSink(sinks ...ErrorSink) ErrorSink {
	return func(err *TeardownError) {
		for _, sink := range sinks {
			if sink != nil {
				sink(err)
			}
		}
	}
}
