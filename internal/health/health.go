package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultReadinessTimeout bounds one readiness evaluation.
const DefaultReadinessTimeout = 5 * time.Second

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is unhealthy.
	StatusUnhealthy Status = "unhealthy"
)

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status  Status `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// ReadinessResponse is the readiness body.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check is one check result.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckFunc probes one dependency. A nil error is healthy.
type CheckFunc func(ctx context.Context) error

// Checker aggregates readiness checks.
type Checker struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	metrics   *Metrics

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// Option is a functional option for the checker.
type Option func(*Checker)

// WithTimeout sets the readiness deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Checker) {
		c.metrics = metrics
	}
}

// NewChecker creates a checker reporting version.
func NewChecker(version string, opts ...Option) *Checker {
	c := &Checker{
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultReadinessTimeout,
		checks:    make(map[string]CheckFunc),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = NewMetrics("", nil)
	}

	return c
}

// RegisterCheck registers a readiness check under name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Health returns the liveness status.
func (c *Checker) Health() HealthResponse {
	return HealthResponse{
		Status:  StatusHealthy,
		Version: c.version,
		Uptime:  time.Since(c.startTime).Round(time.Second).String(),
	}
}

// Readiness runs every check concurrently and reports unhealthy if any
// fails.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make([]Check, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, fn CheckFunc) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				results[i] = Check{Status: StatusUnhealthy, Message: err.Error()}
				return
			}
			results[i] = Check{Status: StatusHealthy}
		}(i, checks[name])
	}
	wg.Wait()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(names)),
		Timestamp: time.Now(),
	}
	for i, name := range names {
		response.Checks[name] = results[i]
		healthy := results[i].Status == StatusHealthy
		c.metrics.SetCheckStatus(name, healthy)
		if !healthy {
			response.Status = StatusUnhealthy
		}
	}
	c.metrics.SetCheckStatus("overall", response.Status == StatusHealthy)

	return response
}

// HealthHandler serves liveness.
func (c *Checker) HealthHandler(ctx *gin.Context) {
	c.metrics.RecordProbe("liveness")
	ctx.JSON(http.StatusOK, c.Health())
}

// ReadinessHandler serves readiness; 503 when any check fails.
func (c *Checker) ReadinessHandler(ctx *gin.Context) {
	c.metrics.RecordProbe("readiness")
	response := c.Readiness(ctx.Request.Context())

	status := http.StatusOK
	if response.Status != StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	ctx.JSON(status, response)
}
