package noop

import (
	"context"

	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

var _ errors.Tracker = (*Tracker)(nil)

// Tracker stands in for Sentry when error tracking is disabled. Nothing leaves
// the process; with a logger attached, captures are echoed at debug level so
// local runs still show what would have been reported.
type Tracker struct {
	log *logger.Logger
}

// New creates a tracker. log may be nil.
func New(log *logger.Logger) *Tracker {
	return &Tracker{log: log}
}

func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	if t.log != nil && err != nil {
		t.log.Debugw("Error not reported (tracking disabled)", "error", err, "tags", tags)
	}
	return nil
}

func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	if t.log != nil {
		t.log.Debugw("Message not reported (tracking disabled)", "message", message, "level", level.String(), "tags", tags)
	}
	return nil
}

// AddBreadcrumb discards the breadcrumb
func (t *Tracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
}

func (t *Tracker) Flush(ctx context.Context) error {
	return nil
}
