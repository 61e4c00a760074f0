package errors

import "context"

// Tracker forwards failures to an external reporting service. Logging
// through logger.Error/Errorf reaches it automatically; Errorw does not.
type Tracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string) error
	CaptureMessage(ctx context.Context, message string, level Level, tags map[string]string) error

	// AddBreadcrumb records a pipeline stage that precedes a possible failure
	AddBreadcrumb(ctx context.Context, message, category string, level Level, data map[string]interface{})

	// Flush blocks until queued events are sent or ctx expires
	Flush(ctx context.Context) error
}

// Level is the severity attached to messages and breadcrumbs
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

func (l Level) String() string { return string(l) }

// ContextBinder is implemented by trackers that keep per-request state.
// Bind returns a context carrying a fresh scope.
type ContextBinder interface {
	Bind(ctx context.Context) context.Context
}
