package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/rickgao/signalhub/internal/auth"
)

// RateLimitConfig configures per-client-IP rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// maxLimiters bounds the per-IP map; past it the map starts over.
const maxLimiters = 1000

type limiterMap struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cfg      RateLimitConfig
}

func (m *limiterMap) get(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.limiters[ip]
	if !ok {
		if len(m.limiters) >= maxLimiters {
			m.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(rate.Limit(m.cfg.RequestsPerSecond), m.cfg.Burst)
		m.limiters[ip] = l
	}
	return l
}

// RateLimiter rejects requests over the per-IP budget with 429.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	m := &limiterMap{limiters: make(map[string]*rate.Limiter), cfg: cfg}

	return func(c *gin.Context) {
		l := m.get(c.ClientIP())
		if !l.Allow() {
			r := l.Reserve()
			retryAfter := r.DelayFrom(time.Now()).Seconds()
			r.Cancel()

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

// requireKey rejects requests whose ?key= does not match with 403.
func requireKey(creds *auth.Credentials) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !creds.Verify(c.Query(auth.QueryParam)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid key"})
			return
		}
		c.Next()
	}
}

// requestLogger logs each request at debug. The query string is left out
// because it carries the key.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
		)
	}
}
