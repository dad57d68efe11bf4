package middleware

import (
	"net/http"
)

// DefaultMaxRequestSize caps request bodies at 1MB. Every payload this API
// accepts is far smaller.
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize limits request body size. A declared Content-Length over
// the cap is rejected up front; bodies without one are cut off mid-read by
// MaxBytesReader.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()

			next.ServeHTTP(w, r)
		})
	}
}
