package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client keeps its bucket.
const visitorTTL = 10 * time.Minute

// RateLimiter is a per-client-IP token bucket.
type RateLimiter struct {
	every time.Duration
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per minute per IP, with bursts up
// to perMinute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	every := time.Minute / time.Duration(perMinute)
	return &RateLimiter{
		every:    every,
		limit:    rate.Every(every),
		burst:    perMinute,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow consumes a token for ip.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	now := rl.now()
	rl.sweep(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// sweep drops idle visitors at most once per TTL. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < visitorTTL {
		return
	}
	rl.lastSweep = now
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, ip)
		}
	}
}

// Middleware rejects requests over the limit with 429. It keys on
// RemoteAddr, so it must run after TrustedRealIP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r.RemoteAddr)
		if !rl.Allow(ip) {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.retryAfter().Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded","message":"Too many requests","code":"RATE001"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) retryAfter() time.Duration {
	return max(rl.every, time.Second)
}

func clientIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
