package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
	"diabetes-risk/pkg/requestid"
)

type ctxMarker struct{}

type bindingTracker struct {
	mu       sync.Mutex
	bound    int
	captured []error
}

func (b *bindingTracker) Bind(ctx context.Context) context.Context {
	b.mu.Lock()
	b.bound++
	b.mu.Unlock()
	return context.WithValue(ctx, ctxMarker{}, true)
}

func (b *bindingTracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.captured = append(b.captured, err)
	return nil
}

func (b *bindingTracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	return nil
}

func (b *bindingTracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
}

func (b *bindingTracker) Flush(ctx context.Context) error { return nil }

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRequestID(t *testing.T) {
	tracker := &bindingTracker{}
	var seenID string
	var bound bool

	h := RequestID(logger.NewNop(), tracker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = requestid.FromContext(r.Context())
		bound, _ = r.Context().Value(ctxMarker{}).(bool)
	}))

	t.Run("reuses valid inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestid.Header, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seenID)
		assert.Equal(t, "abc-123", rec.Header().Get(requestid.Header))
		assert.True(t, bound)
	})

	t.Run("replaces invalid inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestid.Header, "bad id\nwith newline")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.NotEqual(t, "bad id\nwith newline", seenID)
		assert.True(t, requestid.Valid(seenID))
		assert.Equal(t, seenID, rec.Header().Get(requestid.Header))
	})

	assert.Equal(t, 2, tracker.bound)
}

func TestRecover(t *testing.T) {
	tracker := &bindingTracker{}
	h := Recover(logger.NewNop(), tracker)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/predict", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	require.Len(t, tracker.captured, 1)
	assert.Contains(t, tracker.captured[0].Error(), "boom")
}

func TestLogging_RecordsStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	h := Logging(logger.NewNop())(mux)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMaxBodyBytes(t *testing.T) {
	var readErr error
	h := MaxBodyBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32))))

	var tooLarge *http.MaxBytesError
	assert.ErrorAs(t, readErr, &tooLarge)
}

func TestRateLimiter_PerClient(t *testing.T) {
	limiter := NewRateLimiter(1, 2, logger.NewNop())
	h := limiter.Middleware("/predict")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/predict", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))

	// Another client has its own bucket
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"))
	assert.Equal(t, 2, limiter.Clients())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(0, 0, logger.NewNop())
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("10.0.0.1"))
	}
	assert.Zero(t, limiter.Clients())
}

func TestRateLimiter_Sweep(t *testing.T) {
	limiter := NewRateLimiter(5, 5, logger.NewNop())
	limiter.Allow("a")
	limiter.Allow("b")

	assert.Zero(t, limiter.Sweep(time.Now()))
	assert.Equal(t, 2, limiter.Sweep(time.Now().Add(time.Hour)))
	assert.Zero(t, limiter.Clients())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:5555"
	assert.Equal(t, "192.168.1.5", clientIP(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientIP(req))
}
