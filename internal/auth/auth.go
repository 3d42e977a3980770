package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Tokens  []string
	// PublicPaths are served without a token. An entry ending in "/" matches
	// every path below it.
	PublicPaths []string
}

// alwaysPublic are probe paths that stay open regardless of configuration.
var alwaysPublic = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// isPublic returns true if the path is exempt from auth.
func (c Config) isPublic(path string) bool {
	if alwaysPublic[path] {
		return true
	}
	for _, p := range c.PublicPaths {
		if p == path || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// valid compares token against every configured token in constant time.
func (c Config) valid(token string) bool {
	ok := 0
	for _, t := range c.Tokens {
		ok |= subtle.ConstantTimeCompare([]byte(token), []byte(t))
	}
	return ok == 1
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// on non-public paths when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")

			if header == "" || token == header || !cfg.valid(token) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="framerot"`)
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
