package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"diabetes-risk/internal/api/respond"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

// Recover turns a handler panic into a generic 500 and reports it
func Recover(log *logger.Logger, tracker errors.Tracker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rv := recover()
				if rv == nil {
					return
				}
				if rv == http.ErrAbortHandler {
					panic(rv)
				}

				err := errors.Newf("panic: %v", rv)
				logger.FromContext(r.Context(), log).Errorw("Handler panicked",
					"path", r.URL.Path,
					"panic", fmt.Sprint(rv),
					"stack", string(debug.Stack()),
				)
				if tracker != nil {
					_ = tracker.CaptureError(r.Context(), err, map[string]string{"path": r.URL.Path})
				}
				respond.Error(w, http.StatusInternalServerError, "Internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
