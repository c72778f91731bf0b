package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wowfoxz/botiquin-data/internal/api/respond"
)

// --------------------------------------------------------------------------
// Request timing middleware
// --------------------------------------------------------------------------

// TimingMiddleware adds X-Process-Time header to all responses.
func TimingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		w.Header().Set("X-Process-Time", fmt.Sprintf("%.2fms", float64(elapsed.Microseconds())/1000.0))
	})
}

// --------------------------------------------------------------------------
// Rate limiting middleware (per-IP token bucket)
// --------------------------------------------------------------------------

// staleAfter is how long an idle client's bucket is kept before the sweep
// drops it. Dose-reminder clients poll at most once a minute, so an hour
// of silence means the client is gone.
const staleAfter = time.Hour

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

type visitorTable struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func newVisitorTable(requestsPerWindow int, window time.Duration) *visitorTable {
	t := &visitorTable{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(requestsPerWindow) / window.Seconds()),
		burst:    requestsPerWindow / 2,
	}
	go t.sweep()
	return t
}

func (t *visitorTable) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.bucket.Allow()
}

func (t *visitorTable) sweep() {
	ticker := time.NewTicker(staleAfter / 2)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-staleAfter)
		t.mu.Lock()
		for ip, v := range t.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(t.visitors, ip)
			}
		}
		t.mu.Unlock()
	}
}

// RateLimitMiddleware returns middleware that rate-limits by client IP.
func RateLimitMiddleware(requestsPerWindow int, window time.Duration) func(http.Handler) http.Handler {
	table := newVisitorTable(requestsPerWindow, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, _ := net.SplitHostPort(r.RemoteAddr)
			if ip == "" {
				ip = r.RemoteAddr
			}

			if !table.allow(ip) {
				w.Header().Set("Retry-After", "60")
				respond.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
