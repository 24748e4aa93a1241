package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kalambet/tutorgw/internal/tutor"
)

const codeUnauthorized tutor.Code = "UNAUTHORIZED"

// BearerAuth requires a shared token on every request. It guards the
// gateway when it is exposed beyond the application server that fronts it.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, codeUnauthorized, "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
