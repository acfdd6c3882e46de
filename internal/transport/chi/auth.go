package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type keySet map[string]struct{}

func newKeySet(groups ...[]string) keySet {
	ks := keySet{}
	for _, keys := range groups {
		for _, k := range keys {
			if k != "" {
				ks[k] = struct{}{}
			}
		}
	}
	return ks
}

func (ks keySet) contains(token string) bool {
	for k := range ks {
		if subtle.ConstantTimeCompare([]byte(k), []byte(token)) == 1 {
			return true
		}
	}
	return false
}

// bearerToken extracts the token. The message is non-empty when the header is unusable.
func bearerToken(r *http.Request) (string, string) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing authorization header"
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", "authorization header must use Bearer scheme"
	}
	return auth[len(bearerPrefix):], ""
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens against
// apiKeys and adminKeys. If apiKeys is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys, adminKeys []string) func(http.Handler) http.Handler {
	enabled := len(newKeySet(apiKeys)) > 0
	validKeys := newKeySet(apiKeys, adminKeys)

	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, problem := bearerToken(r)
			if problem != "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, problem)
				return
			}
			if !validKeys.contains(token) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminAuthMiddleware requires a Bearer token from adminKeys.
// If adminKeys is empty, admin routes are unguarded.
func AdminAuthMiddleware(adminKeys []string) func(http.Handler) http.Handler {
	validKeys := newKeySet(adminKeys)

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r)
			if problem != "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, problem)
				return
			}
			if !validKeys.contains(token) {
				writeError(w, http.StatusForbidden, CodeForbidden, "admin key required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
