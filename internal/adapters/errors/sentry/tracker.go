package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/requestid"
)

const defaultFlushTimeout = 2 * time.Second

var levels = map[errors.Level]sentry.Level{
	errors.LevelDebug:   sentry.LevelDebug,
	errors.LevelInfo:    sentry.LevelInfo,
	errors.LevelWarning: sentry.LevelWarning,
	errors.LevelError:   sentry.LevelError,
	errors.LevelFatal:   sentry.LevelFatal,
}

// Tracker reports prediction failures to Sentry
type Tracker struct {
	hub *sentry.Hub
}

// New initializes the global Sentry client. The service name is sent as the
// release so events group per deployment.
func New(dsn, environment, service string) (*Tracker, error) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     service,
	}); err != nil {
		return nil, errors.Wrap(err, "init sentry")
	}
	return NewWithHub(sentry.CurrentHub()), nil
}

// NewWithHub reports through hub instead of the global one
func NewWithHub(hub *sentry.Hub) *Tracker {
	return &Tracker{hub: hub}
}

// Bind attaches a cloned hub to ctx so breadcrumbs stay request-scoped
func (t *Tracker) Bind(ctx context.Context) context.Context {
	return sentry.SetHubOnContext(ctx, t.hub.Clone())
}

func (t *Tracker) hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return t.hub
}

// scoped clones the request hub and tags it before fn captures the event,
// leaving the bound hub's scope untouched.
func (t *Tracker) scoped(ctx context.Context, tags map[string]string, fn func(*sentry.Hub, *sentry.Scope)) {
	hub := t.hubFor(ctx).Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if id := requestid.FromContext(ctx); id != "" {
			scope.SetTag("request_id", id)
		}
		fn(hub, scope)
	})
}

func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	t.scoped(ctx, tags, func(hub *sentry.Hub, _ *sentry.Scope) {
		hub.CaptureException(err)
	})
	return nil
}

func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	t.scoped(ctx, tags, func(hub *sentry.Hub, scope *sentry.Scope) {
		scope.SetLevel(toSentryLevel(level))
		hub.CaptureMessage(message)
	})
	return nil
}

// AddBreadcrumb records a pipeline stage on the request's hub
func (t *Tracker) AddBreadcrumb(ctx context.Context, message, category string, level errors.Level, data map[string]interface{}) {
	t.hubFor(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Message:  message,
		Category: category,
		Level:    toSentryLevel(level),
		Data:     data,
	}, nil)
}

// Flush waits for queued events until ctx's deadline
func (t *Tracker) Flush(ctx context.Context) error {
	timeout := defaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !t.hub.Flush(timeout) {
		return errors.Wrap(errors.ErrUnavailable, "sentry flush timed out")
	}
	return nil
}

func toSentryLevel(level errors.Level) sentry.Level {
	if l, ok := levels[level]; ok {
		return l
	}
	return sentry.LevelInfo
}

var (
	_ errors.Tracker       = (*Tracker)(nil)
	_ errors.ContextBinder = (*Tracker)(nil)
)
