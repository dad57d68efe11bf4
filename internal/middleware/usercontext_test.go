package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streakdhq/streakd/internal/request"
)

func TestUserContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUserID bool
	}{
		{
			name:       "valid user ID",
			header:     uuid.New().String(),
			wantStatus: http.StatusOK,
			wantUserID: true,
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed UUID",
			header:     "not-a-uuid",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "nil UUID",
			header:     uuid.Nil.String(),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotUserID uuid.UUID
			var gotOK bool
			handler := UserContext(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, gotOK = request.UserIDFromContext(r)
				w.WriteHeader(http.StatusOK)
			}))

			r := httptest.NewRequest("GET", "/streak", nil)
			if tt.header != "" {
				r.Header.Set(UserIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantUserID {
				if !gotOK {
					t.Fatal("expected user ID in context")
				}
				if gotUserID.String() != tt.header {
					t.Errorf("user ID = %s, want %s", gotUserID, tt.header)
				}
			} else if gotOK {
				t.Error("handler must not run for rejected requests")
			}
		})
	}
}

func TestCORS_SplitOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"http://localhost:3000", 1},
		{"http://a.example, http://b.example", 2},
		{" , ", 0},
		{"", 0},
	}
	for _, tt := range tests {
		tt := tt
		if got := splitOrigins(tt.in); len(got) != tt.want {
			t.Errorf("splitOrigins(%q) = %v, want %d origins", tt.in, got, tt.want)
		}
	}
}
