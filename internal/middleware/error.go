package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrorResponse is the JSON body sent when a handler panics.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// ErrorHandler recovers handler panics, logs them, and turns them into a
// generic 500 response. Panic detail stays server-side.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}

				logger.Error("panic_recovered",
					zap.Any("error", recovered),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				response := ErrorResponse{
					Success:   false,
					Error:     "Internal Server Error",
					Message:   "An unexpected error occurred",
					Timestamp: time.Now().UTC().Format(time.RFC3339),
					Path:      r.URL.Path,
				}
				if err := json.NewEncoder(w).Encode(response); err != nil {
					logger.Error("failed_to_encode_error_response",
						zap.Error(err),
						zap.String("path", r.URL.Path),
					)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
