package middleware

import (
	"context"
	"net/http"

	"datashelf/internal/domain"
)

// requestIDHeader is propagated on both request and response so log lines
// can be correlated across services.
const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID tags every request with an id: the caller's, when the header
// is already set, otherwise a fresh UUIDv7 like every other id in the
// system. The id is echoed on the response and bound into the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = domain.NewID()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestIDFromContext returns the request id bound by RequestID, or ""
// outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
