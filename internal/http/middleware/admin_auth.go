package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
)

// ErrUnauthorized is reported when the admin token does not match.
var ErrUnauthorized = errors.New("unauthorized")

// AdminToken guards admin endpoints with the ?token= shared secret. An empty
// configured token rejects every request.
func AdminToken(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !TokenMatches(expected, r.URL.Query().Get("token")) {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenMatches compares in constant time.
func TokenMatches(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "Unauthorized"})
}
