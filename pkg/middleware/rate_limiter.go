package middleware

import (
	"net/http"
	"sync"
	"time"

	"chat-companion-analytics/backend/pkg/errors"
	"chat-companion-analytics/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterOptions configures the per-client token bucket.
type RateLimiterOptions struct {
	// Limit is the sustained request rate per client.
	Limit rate.Limit
	// Burst is the maximum burst size per client.
	Burst int
	// ExpiryDuration is how long idle client state is kept in memory.
	ExpiryDuration time.Duration
	// KeyFunc extracts the limiting key from a request.
	KeyFunc func(*gin.Context) string
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-client token bucket to a route group. Client
// state lives in memory and expires after ExpiryDuration of inactivity.
type RateLimiter struct {
	mu       sync.Mutex
	options  RateLimiterOptions
	visitors map[string]*visitor
	logger   *logger.Logger
}

func NewRateLimiter(log *logger.Logger, options RateLimiterOptions) *RateLimiter {
	if options.Limit <= 0 {
		options.Limit = 5
	}
	if options.Burst <= 0 {
		options.Burst = 10
	}
	if options.ExpiryDuration <= 0 {
		options.ExpiryDuration = time.Hour
	}
	if options.KeyFunc == nil {
		options.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if log == nil {
		log = logger.GetGlobal()
	}
	return &RateLimiter{
		options:  options,
		visitors: make(map[string]*visitor),
		logger:   log,
	}
}

// Middleware rejects requests whose client bucket is exhausted.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	go r.cleanup()

	return func(c *gin.Context) {
		key := r.options.KeyFunc(c)
		if !r.limiterFor(key).Allow() {
			r.logger.Warn("rate limit exceeded",
				"client", key,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			c.Error(errors.NewError(http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later."))
			c.Header("Retry-After", "1")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) limiterFor(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.options.Limit, r.options.Burst)}
		r.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (r *RateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		r.mu.Lock()
		for key, v := range r.visitors {
			if time.Since(v.lastSeen) > r.options.ExpiryDuration {
				delete(r.visitors, key)
			}
		}
		r.mu.Unlock()
	}
}
