package sentry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/requestid"
)

type captureTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captureTransport) Configure(sentry.ClientOptions) {}
func (c *captureTransport) Flush(time.Duration) bool       { return true }
func (c *captureTransport) Close()                         {}
func (c *captureTransport) SendEvent(event *sentry.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func newTestTracker(t *testing.T) (*Tracker, *captureTransport) {
	t.Helper()
	tr := &captureTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Transport: tr})
	require.NoError(t, err)
	return NewWithHub(sentry.NewHub(client, sentry.NewScope())), tr
}

func TestTracker_BreadcrumbsAreRequestScoped(t *testing.T) {
	tracker, tr := newTestTracker(t)

	ctx := requestid.WithID(context.Background(), "req-1")
	ctx = tracker.Bind(ctx)
	tracker.AddBreadcrumb(ctx, "normalized input", "prediction", errors.LevelInfo, nil)
	require.NoError(t, tracker.CaptureError(ctx, errors.ErrPrediction, map[string]string{"stage": "score"}))

	other := tracker.Bind(context.Background())
	require.NoError(t, tracker.CaptureError(other, errors.ErrScaling, nil))

	require.Len(t, tr.events, 2)
	assert.Len(t, tr.events[0].Breadcrumbs, 1)
	assert.Equal(t, "req-1", tr.events[0].Tags["request_id"])
	assert.Equal(t, "score", tr.events[0].Tags["stage"])
	assert.Empty(t, tr.events[1].Breadcrumbs)
}

func TestTracker_CaptureMessageLevel(t *testing.T) {
	tracker, tr := newTestTracker(t)

	require.NoError(t, tracker.CaptureMessage(context.Background(), "model loaded", errors.LevelWarning, nil))
	require.Len(t, tr.events, 1)
	assert.Equal(t, sentry.LevelWarning, tr.events[0].Level)
	assert.Equal(t, "model loaded", tr.events[0].Message)
}

func TestToSentryLevel(t *testing.T) {
	assert.Equal(t, sentry.LevelFatal, toSentryLevel(errors.LevelFatal))
	assert.Equal(t, sentry.LevelInfo, toSentryLevel(errors.Level("unknown")))
}
