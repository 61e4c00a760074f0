package middleware

import (
	"net/http"

	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
	"diabetes-risk/pkg/requestid"
)

// RequestID assigns every request a correlation id, reusing a well-formed
// inbound X-Request-ID. The id is echoed in the response, attached to a
// request-scoped logger and, when the tracker supports it, to a fresh
// tracker scope.
func RequestID(log *logger.Logger, tracker errors.Tracker) Middleware {
	binder, _ := tracker.(errors.ContextBinder)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestid.Header)
			if !requestid.Valid(id) {
				id = requestid.New()
			}
			w.Header().Set(requestid.Header, id)

			ctx := requestid.WithID(r.Context(), id)
			ctx = logger.WithContext(ctx, log.With("request_id", id))
			if binder != nil {
				ctx = binder.Bind(ctx)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
