package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type RateLimitMiddlewareConfig struct {
	RequestsPerSecond int
	Burst             int
	// Called for every rejected request, may be nil
	OnLimited func()
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps one token bucket per client IP. Buckets idle
// for longer than idleTimeout are dropped by Cleanup.
type RateLimitMiddleware struct {
	config      RateLimitMiddlewareConfig
	visitors    map[string]*visitor
	mutex       sync.Mutex
	idleTimeout time.Duration
}

func NewRateLimitMiddleware(config RateLimitMiddlewareConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		config:      config,
		visitors:    make(map[string]*visitor),
		idleTimeout: 10 * time.Minute,
	}
}

func (m *RateLimitMiddleware) Init() error {
	if m.config.RequestsPerSecond <= 0 {
		m.config.RequestsPerSecond = 10
	}
	if m.config.Burst <= 0 {
		m.config.Burst = m.config.RequestsPerSecond
	}
	return nil
}

func (m *RateLimitMiddleware) limiter(ip string) *rate.Limiter {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	v, exists := m.visitors[ip]
	if !exists {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), m.config.Burst),
		}
		m.visitors[ip] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (m *RateLimitMiddleware) Cleanup() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for ip, v := range m.visitors {
		if time.Since(v.lastSeen) > m.idleTimeout {
			delete(m.visitors, ip)
		}
	}
}

func (m *RateLimitMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		if m.limiter(ip).Allow() {
			c.Next()
			return
		}

		tlog.App.Warn().Str("ip", ip).Str("path", c.Request.URL.Path).Msg("Rate limit exceeded")

		if m.config.OnLimited != nil {
			m.config.OnLimited()
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":             "slow_down",
			"error_description": "Too many requests",
		})
	}
}
