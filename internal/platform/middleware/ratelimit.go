package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL is how long an idle client's limiter is kept.
	IdleTTL time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 20, BurstSize: 40, IdleTTL: 3 * time.Minute}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter holds one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 3 * time.Minute
	}
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.BurstSize,
		idleTTL:  cfg.IdleTTL,
	}
}

func (l *IPRateLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Sweep drops limiters idle for longer than the configured TTL and returns
// how many were removed.
func (l *IPRateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.visitors, ip)
			removed++
		}
	}
	return removed
}

// Middleware rejects requests over the per-IP rate with 429.
func (l *IPRateLimiter) Middleware() echo.MiddlewareFunc {
	limitHeader := strconv.FormatFloat(float64(l.limit), 'f', 0, 64)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lim := l.get(c.RealIP(), time.Now())
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !lim.Allow() {
				retry := 1
				if l.limit > 0 {
					retry = int(1/float64(l.limit)) + 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
			}
			return next(c)
		}
	}
}
