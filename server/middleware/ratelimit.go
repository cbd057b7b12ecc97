package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowgraph/auth"
	"github.com/kbukum/flowgraph/errors"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Enabled turns rate limiting of the API on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// RequestsPerMinute is the maximum number of requests allowed per minute per key.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// KeyFunc extracts the rate limit key from a request. Defaults to SubjectKey.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// RateLimit applies per-key sliding-window rate limiting. The sweeper
// goroutine that drops idle keys ends with ctx.
func RateLimit(ctx context.Context, cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = SubjectKey
	}

	rl := newRateLimiter(cfg.RequestsPerMinute, time.Now)
	go rl.cleanup(ctx, 5*time.Minute)

	return func(c *gin.Context) {
		if !rl.allow(cfg.KeyFunc(c)) {
			c.AbortWithStatusJSON(errors.RateLimited().HTTPStatus, errors.RateLimited().ToResponse())
			return
		}
		c.Next()
	}
}

// IPBasedKey uses the client IP as the rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// SubjectKey uses the token subject, falling back to the client IP for
// anonymous requests.
func SubjectKey(c *gin.Context) string {
	if sub := auth.Subject(c.Request.Context()); sub != "" {
		return "sub:" + sub
	}
	return c.ClientIP()
}

type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	now      func() time.Time
}

func newRateLimiter(limit int, now func() time.Time) *rateLimiter {
	return &rateLimiter{requests: make(map[string][]time.Time), limit: limit, now: now}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := filterByTime(rl.requests[key], now.Add(-time.Minute))
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

func (rl *rateLimiter) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
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

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-time.Minute)
	for key, times := range rl.requests {
		if valid := filterByTime(times, cutoff); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func filterByTime(times []time.Time, cutoff time.Time) []time.Time {
	var result []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}
