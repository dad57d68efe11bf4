package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/streakdhq/streakd/internal/logger"
	"github.com/streakdhq/streakd/internal/request"
	"go.uber.org/zap"
)

// Logging emits one structured entry per request after the handler runs.
// The user id field is present only past the auth boundary.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("client_ip", request.ClientIP(r)),
				zap.Int("status_code", wrapped.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if userID, ok := request.UserIDFromContext(r); ok {
				fields = append(fields, zap.String("user_id", logpkg.SanitizeUserID(userID.String())))
			}

			logger.Info("http_request", fields...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
