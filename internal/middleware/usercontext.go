package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streakdhq/streakd/internal/request"
)

// UserIDHeader carries the authenticated user's ID, set by the fronting
// auth proxy. Requests reaching this service are already authenticated.
const UserIDHeader = "X-User-ID"

// UserContext extracts the user ID from the auth proxy header and attaches
// it to the request context. Requests without a valid ID are rejected.
func UserContext(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(UserIDHeader)
			if raw == "" {
				respondError(w, http.StatusUnauthorized, "Missing "+UserIDHeader+" header")
				return
			}

			userID, err := uuid.Parse(raw)
			if err != nil || userID == uuid.Nil {
				logger.Warn("invalid_user_id_header",
					zap.String("path", r.URL.Path),
				)
				respondError(w, http.StatusUnauthorized, "Invalid "+UserIDHeader+" header")
				return
			}

			ctx := request.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	_ = json.NewEncoder(w).Encode(response)
}
