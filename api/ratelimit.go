package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepEvery   = time.Minute
	tooManyRequestsText = "Terlalu banyak permintaan, coba lagi sebentar lagi"
)

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address. Upstream throttles
// by our own address, so a single noisy client must not burn the shared quota.
type IPRateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*ipLimiterEntry
	rate       rate.Limit
	burst      int
	trustProxy bool
	now        func() time.Time
}

// LimiterOption customises an IPRateLimiter.
type LimiterOption func(*IPRateLimiter)

// WithProxyHeaders keys clients by X-Forwarded-For / X-Real-IP. Only enable
// it behind a reverse proxy that overwrites those headers; otherwise clients
// can pick their own bucket.
func WithProxyHeaders() LimiterOption {
	return func(rl *IPRateLimiter) {
		rl.trustProxy = true
	}
}

// NewIPRateLimiter allows perMinute requests per client per minute, with
// the whole minute's allowance available as burst. Clients are keyed by
// their connection address unless WithProxyHeaders is given.
func NewIPRateLimiter(perMinute int, opts ...LimiterOption) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	rl := &IPRateLimiter{
		limiters: make(map[string]*ipLimiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Run evicts idle clients until ctx is done.
func (rl *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *IPRateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, ip)
		}
	}
}

func (rl *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Allow reports whether ip may make another request now.
func (rl *IPRateLimiter) Allow(ip string) bool {
	return rl.limiterFor(ip).AllowN(rl.now(), 1)
}

func (rl *IPRateLimiter) retryAfter() int {
	secs := int(time.Duration(float64(time.Second) / float64(rl.rate)).Seconds())
	return max(secs, 1)
}

func (rl *IPRateLimiter) clientKey(r *http.Request) string {
	if rl.trustProxy {
		return ClientIP(r)
	}
	return RemoteIP(r)
}

// ClientIP picks the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address. The headers are client-controlled unless a proxy
// rewrites them, so use it for logging, not for access decisions.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return RemoteIP(r)
}

// RemoteIP is the connection's address without the port.
func RemoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimit rejects clients over their allowance with 429. A nil limiter
// disables limiting.
func RateLimit(rl *IPRateLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if rl == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || rl.Allow(rl.clientKey(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			writeError(w, http.StatusTooManyRequests, tooManyRequestsText)
		})
	}
}
