package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	byIP    sync.Map // map[string]*ipLimiter
}

// NewIPRateLimiter allows rps requests per second per IP with the given burst.
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: 30 * time.Minute,
		now:     time.Now,
	}
}

func (l *IPRateLimiter) limiterFor(ip string) *ipLimiter {
	if v, ok := l.byIP.Load(ip); ok {
		return v.(*ipLimiter)
	}
	fresh := &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
	v, _ := l.byIP.LoadOrStore(ip, fresh)
	return v.(*ipLimiter)
}

// Allow reports whether a request from ip may proceed now.
func (l *IPRateLimiter) Allow(ip string) bool {
	il := l.limiterFor(ip)
	il.lastSeen.Store(l.now().UnixNano())
	return il.limiter.Allow()
}

// Middleware rejects over-limit requests with 429.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(RemoteIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Sweep drops limiters idle for longer than the idle TTL.
func (l *IPRateLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTTL).UnixNano()
	removed := 0
	l.byIP.Range(func(key, val any) bool {
		if val.(*ipLimiter).lastSeen.Load() < cutoff {
			l.byIP.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Run sweeps idle limiters every interval until ctx is done.
func (l *IPRateLimiter) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			l.Sweep()
		}
	}
}

// RemoteIP prefers the first X-Forwarded-For entry, then RemoteAddr.
func RemoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
