package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

// Rate limiter defaults.
const (
	// DefaultClientTTL is how long an idle client keeps its limiter.
	DefaultClientTTL = 10 * time.Minute

	// MinCleanupInterval is the minimum interval between cleanups.
	MinCleanupInterval = 10 * time.Second

	// MaxCleanupInterval is the maximum interval between cleanups.
	MaxCleanupInterval = time.Minute
)

type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter holds one token bucket per client IP.
type RateLimiter struct {
	rps       rate.Limit
	burst     int
	clientTTL time.Duration
	logger    observability.Logger

	mu      sync.Mutex
	clients map[string]*clientEntry
	stopCh  chan struct{}
	stopped bool
}

// RateLimiterOption is a functional option for the rate limiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.logger = logger
	}
}

// WithClientTTL sets how long idle client entries are kept.
func WithClientTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		if ttl > 0 {
			rl.clientTTL = ttl
		}
	}
}

// NewRateLimiter creates a per-client limiter.
func NewRateLimiter(rps float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		clientTTL: DefaultClientTTL,
		logger:    observability.NopLogger(),
		clients:   make(map[string]*clientEntry),
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// Allow reports whether client may proceed now.
func (rl *RateLimiter) Allow(client string) bool {
	now := time.Now()

	rl.mu.Lock()
	entry, exists := rl.clients[client]
	if !exists {
		entry = &clientEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[client] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// CleanupOldClients drops entries idle for longer than maxAge.
func (rl *RateLimiter) CleanupOldClients(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	removed := 0
	for client, entry := range rl.clients {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(rl.clients, client)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("cleaned up expired rate limiter entries",
			observability.Int("removed", removed),
			observability.Int("remaining", len(rl.clients)),
		)
	}
}

// StartAutoCleanup periodically removes idle clients until Stop.
func (rl *RateLimiter) StartAutoCleanup() {
	rl.mu.Lock()
	if rl.stopped {
		rl.mu.Unlock()
		return
	}
	rl.mu.Unlock()

	interval := rl.clientTTL / 2
	if interval > MaxCleanupInterval {
		interval = MaxCleanupInterval
	}
	if interval < MinCleanupInterval {
		interval = MinCleanupInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.CleanupOldClients(rl.clientTTL)
			case <-rl.stopCh:
				return
			}
		}
	}()
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.stopped {
		rl.stopped = true
		close(rl.stopCh)
	}
}

// RateLimit rejects requests over the client's budget with 429.
func RateLimit(rl *RateLimiter, metrics *observability.Metrics) gin.HandlerFunc {
	retryAfter := "1"
	if rl.rps > 0 && rl.rps < 1 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / float64(rl.rps))))
	}

	return func(c *gin.Context) {
		client := c.ClientIP()
		if rl.Allow(client) {
			c.Next()
			return
		}

		route := c.FullPath()
		if metrics != nil {
			metrics.RecordRateLimitHit(route)
		}
		rl.logger.WithContext(c.Request.Context()).Warn("rate limit exceeded",
			observability.String("client_ip", client),
			observability.String("route", route),
		)

		c.Header(HeaderRetryAfter, retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "Too Many Requests",
		})
	}
}
