package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/radiusdt/creatorpulse/internal/config"
	"github.com/radiusdt/creatorpulse/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Rate limit classes.
const (
	ClassAPI    = "api"
	ClassAdmin  = "admin"
	ClassClient = "client"
)

// AdminPathPrefix marks endpoints limited by the admin bucket.
const AdminPathPrefix = "/v1/admin/"

// RateLimitMiddleware implements token bucket rate limiting: a global bucket
// for API traffic, a tight bucket for admin endpoints, and a per-client bucket
// keyed by API key or IP.
type RateLimitMiddleware struct {
	cfg          config.RateLimitConfig
	logger       *zap.Logger
	metrics      *metrics.Metrics
	apiLimiter   *rate.Limiter
	adminLimiter *rate.Limiter

	mu             sync.Mutex
	clientLimiters map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware.
func NewRateLimitMiddleware(cfg config.RateLimitConfig, logger *zap.Logger, m *metrics.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		cfg:            cfg,
		logger:         logger,
		metrics:        m,
		apiLimiter:     rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		adminLimiter:   rate.NewLimiter(rate.Limit(cfg.AdminRPS), cfg.AdminBurst),
		clientLimiters: make(map[string]*clientLimiter),
	}
}

// Handler wraps an http.Handler with rate limiting.
func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		class := ClassAPI
		limiter := rl.apiLimiter
		if strings.HasPrefix(r.URL.Path, AdminPathPrefix) {
			class = ClassAdmin
			limiter = rl.adminLimiter
		}

		if !limiter.Allow() {
			rl.reject(w, r, class)
			return
		}
		if !rl.getClientLimiter(rl.clientKey(r)).Allow() {
			rl.reject(w, r, ClassClient)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimitMiddleware) reject(w http.ResponseWriter, r *http.Request, class string) {
	rl.logger.Warn("rate limit exceeded",
		zap.String("class", class),
		zap.String("path", r.URL.Path),
	)
	if rl.metrics != nil {
		rl.metrics.RecordRateLimitHit(class)
	}
	w.Header().Set("Retry-After", "1")
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// getClientLimiter returns or creates the limiter for one client. A client
// gets a tenth of the global budget.
func (rl *RateLimitMiddleware) getClientLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, ok := rl.clientLimiters[key]; ok {
		cl.lastSeen = time.Now()
		return cl.limiter
	}

	burst := rl.cfg.Burst / 10
	if burst < 1 {
		burst = 1
	}
	cl := &clientLimiter{
		limiter:  rate.NewLimiter(rate.Limit(rl.cfg.RPS/10), burst),
		lastSeen: time.Now(),
	}
	rl.clientLimiters[key] = cl
	return cl.limiter
}

// clientKey prefers the API key so clients behind one proxy are told apart.
func (rl *RateLimitMiddleware) clientKey(r *http.Request) string {
	if key := r.Header.Get(AuthHeaderName); key != "" {
		return "key:" + key
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// CleanupClientLimiters drops limiters idle for longer than maxIdle. Call it
// periodically.
func (rl *RateLimitMiddleware) CleanupClientLimiters(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for key, cl := range rl.clientLimiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clientLimiters, key)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("cleaned up client rate limiters", zap.Int("removed", removed))
	}
	return removed
}
