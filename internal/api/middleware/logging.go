package middleware

import (
	"net/http"
	"time"

	"diabetes-risk/internal/metrics"
	"diabetes-risk/pkg/logger"
)

// Logging logs each request and records HTTP metrics by matched route
func Logging(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			// ServeMux fills Pattern on the request it was handed
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordHTTPRequest(route, r.Method, status, duration)

			reqLog := logger.FromContext(r.Context(), log)
			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", duration,
				"remote", clientIP(r),
			}
			if status >= http.StatusInternalServerError {
				reqLog.Warnw("HTTP request failed", fields...)
				return
			}
			reqLog.Infow("HTTP request", fields...)
		})
	}
}
