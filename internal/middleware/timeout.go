package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds slow handlers when no explicit timeout is
// configured.
const DefaultRequestTimeout = 30 * time.Second

// Timeout enforces a deadline on every request. The handler sees a context
// that expires at the deadline, and the client gets a 503 if the handler
// does not finish in time.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		timeoutHandler := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			timeoutHandler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
