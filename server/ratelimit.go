package server

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"esgledger/auth"
)

// RateLimit caps requests per minute for one route class.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
}

// RateLimiter throttles callers per route class, keyed by authenticated
// participant where available and client IP otherwise. Transaction-submitting
// routes get the tightest limits: each request can cost real fees.
type RateLimiter struct {
	logger *slog.Logger
	limits map[string]RateLimit

	mu       sync.Mutex
	visitors map[string]*rate.Limiter
}

// NewRateLimiter constructs a limiter with the given per-class limits.
func NewRateLimiter(limits map[string]RateLimit, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		logger:   logger,
		limits:   limits,
		visitors: make(map[string]*rate.Limiter),
	}
}

// Middleware throttles requests under the named route class.
func (rl *RateLimiter) Middleware(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit, ok := rl.limits[class]
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			key := class + "|" + callerID(r)
			if !rl.obtainLimiter(key, limit).Allow() {
				rl.logger.Warn("rate limited", "class", class, "caller", callerID(r))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) obtainLimiter(key string, cfg RateLimit) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.visitors[key]
	if ok {
		return limiter
	}
	perSecond := cfg.RequestsPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 1.0 / 60.0
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	rl.visitors[key] = limiter
	return limiter
}

func callerID(r *http.Request) string {
	if claims, err := auth.FromContext(r.Context()); err == nil {
		return claims.ParticipantID.String()
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
