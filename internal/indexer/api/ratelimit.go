package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/emperorhan/oilube/internal/cache"
)

const (
	// idleClientTTL is how long a client's bucket survives without traffic.
	idleClientTTL     = 10 * time.Minute
	maxTrackedClients = 10_000
)

// RateLimitMiddleware gives every client IP its own token bucket. Buckets
// live in a bounded LRU, so idle or excess clients are forgotten without a
// sweeper goroutine.
type RateLimitMiddleware struct {
	buckets *cache.LRU[string, *rate.Limiter]
	rps     rate.Limit
	burst   int
	logger  *slog.Logger
}

// NewRateLimitMiddleware limits each client to rps requests per second with
// the given burst. rps <= 0 disables limiting.
func NewRateLimitMiddleware(rps float64, burst int, logger *slog.Logger) *RateLimitMiddleware {
	return newRateLimit(rps, burst, maxTrackedClients, logger)
}

func newRateLimit(rps float64, burst, clients int, logger *slog.Logger) *RateLimitMiddleware {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitMiddleware{
		buckets: cache.NewLRU[string, *rate.Limiter](clients, idleClientTTL),
		rps:     limit,
		burst:   burst,
		logger:  logger.With("component", "query_api_ratelimit"),
	}
}

// TrackedClients returns how many client buckets are held.
func (rl *RateLimitMiddleware) TrackedClients() int {
	return rl.buckets.Len()
}

// Wrap limits every route except health checks and metrics scrapes.
func (rl *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r)
		if !rl.bucket(ip).Allow() {
			rl.logger.Warn("query API rate limit exceeded", "method", r.Method, "path", r.URL.Path, "client_ip", ip)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bucket returns ip's limiter and pushes back its idle expiry. Two first
// requests racing for the same ip may each get a fresh bucket; the last Put
// wins.
func (rl *RateLimitMiddleware) bucket(ip string) *rate.Limiter {
	l, ok := rl.buckets.Get(ip)
	if !ok {
		l = rate.NewLimiter(rl.rps, rl.burst)
	}
	rl.buckets.Put(ip, l)
	return l
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
