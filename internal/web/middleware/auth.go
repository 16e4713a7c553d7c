package middleware

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/compatdb/internal/config"
	"github.com/JonMunkholm/compatdb/internal/core"
)

// AnonymousCaller is granted on every request when API keys are disabled.
const AnonymousCaller = "anonymous"

// APIKeyAuth returns middleware that validates the X-API-Key header against
// configured keys and marks the request context with an authenticated
// core.Caller. If RequireAPIKey is false, every request gets the anonymous
// caller.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				ctx := core.WithCaller(r.Context(), core.Caller{ID: AnonymousCaller})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH002")
				return
			}

			idx := matchAPIKey(apiKey, cfg.APIKeys)
			if idx < 0 {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH003")
				return
			}

			// Keys are secrets; callers are identified by key position.
			caller := core.Caller{ID: fmt.Sprintf("api-key-%d", idx+1)}
			next.ServeHTTP(w, r.WithContext(core.WithCaller(r.Context(), caller)))
		})
	}
}

// matchAPIKey returns the index of the matching key, or -1.
// Every key is compared in constant time so timing does not reveal which
// key (if any) matched.
func matchAPIKey(key string, validKeys []string) int {
	idx := -1
	for i, validKey := range validKeys {
		eq := subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
		idx = subtle.ConstantTimeSelect(eq, i, idx)
	}
	return idx
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q,"message":%q,"code":%q}`, message, message, code)
}
