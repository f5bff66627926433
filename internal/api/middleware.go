package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/skyglow-app/skyglow-server/internal/api/respond"
)

// TimingMiddleware reports server-side processing time in X-Process-Time.
func TimingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		w.Header().Set("X-Process-Time", fmt.Sprintf("%.2fms", float64(elapsed.Microseconds())/1000.0))
	})
}

// RateLimitMiddleware limits each client IP to requestsPerWindow requests
// per window. The preview endpoint is the hot path here and clients poll it;
// the limiter favors a steady refill over large bursts.
func RateLimitMiddleware(requestsPerWindow int, window time.Duration) func(http.Handler) http.Handler {
	limiters := &clientLimiters{
		byIP:  make(map[string]*rate.Limiter),
		limit: rate.Limit(float64(requestsPerWindow) / window.Seconds()),
		burst: burstFor(requestsPerWindow),
	}
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(clientIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				respond.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// burstFor lets a client spend a fraction of its window at once. Never below
// 1: a zero burst rejects every request regardless of the configured rate.
func burstFor(requestsPerWindow int) int {
	b := requestsPerWindow / 4
	if b < 1 {
		b = 1
	}
	return b
}

// clientLimiters holds one token bucket per client IP. Entries live for the
// process lifetime; the device population is small enough that eviction
// is not worth the bookkeeping.
type clientLimiters struct {
	mu    sync.Mutex
	byIP  map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func (c *clientLimiters) allow(ip string) bool {
	c.mu.Lock()
	lim, ok := c.byIP[ip]
	if !ok {
		lim = rate.NewLimiter(c.limit, c.burst)
		c.byIP[ip] = lim
	}
	c.mu.Unlock()
	return lim.Allow()
}

// clientIP extracts the client address; RealIP middleware has already
// rewritten RemoteAddr from forwarding headers where present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
