package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKey rejects requests whose x-api-key header does not match the
// configured key. Comparison is constant-time.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("x-api-key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"invalid API key"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
