package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/compatdb/internal/config"
	"github.com/JonMunkholm/compatdb/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callerEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := core.CallerFrom(r.Context())
		require.True(t, ok, "caller missing from context")
		w.Write([]byte(c.ID))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"first", "second"}}
	h := APIKeyAuth(cfg)(callerEcho(t))

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantBody   string
	}{
		{"missing key", "", http.StatusUnauthorized, ""},
		{"wrong key", "nope", http.StatusForbidden, ""},
		{"first key", "first", http.StatusOK, "api-key-1"},
		{"second key", "second", http.StatusOK, "api-key-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/import/commit", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	h := APIKeyAuth(&config.SecurityConfig{})(callerEcho(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, AnonymousCaller, rec.Body.String())
}

func TestMatchAPIKey(t *testing.T) {
	keys := []string{"a", "bb", "ccc"}
	assert.Equal(t, 0, matchAPIKey("a", keys))
	assert.Equal(t, 2, matchAPIKey("ccc", keys))
	assert.Equal(t, -1, matchAPIKey("cc", keys))
	assert.Equal(t, -1, matchAPIKey("a", nil))
}

func TestTrustedRealIP(t *testing.T) {
	h := TrustedRealIP([]string{"10.0.0.0/8", "127.0.0.1", "bogus"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.RemoteAddr))
		}))

	tests := []struct {
		name   string
		remote string
		header map[string]string
		want   string
	}{
		{"trusted proxy real ip", "10.1.2.3:5555", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"trusted proxy forwarded chain", "127.0.0.1:80", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1"}, "198.51.100.7"},
		{"untrusted client spoofing", "192.0.2.10:1234", map[string]string{"X-Real-IP": "203.0.113.9"}, "192.0.2.10:1234"},
		{"invalid header value", "10.1.2.3:5555", map[string]string{"X-Real-IP": "not-an-ip"}, "10.1.2.3:5555"},
		{"no headers", "10.1.2.3:5555", nil, "10.1.2.3:5555"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "buckets are per IP")

	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"), "one token refills every 30s")
	assert.False(t, rl.Allow("1.1.1.1"))
}

func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(10)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("1.1.1.1")
	now = now.Add(2 * visitorTTL)
	rl.Allow("2.2.2.2")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "1.1.1.1")
	assert.Contains(t, rl.visitors, "2.2.2.2")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(2)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:999"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "30", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}
