package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

// Metrics records request counts, durations and sizes per route
// template, so /data/:resourceName stays one series.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.IncrementActiveRequests()
		defer m.DecrementActiveRequests()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = observability.UnmatchedRoute
		}
		m.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start), c.Writer.Size())
	}
}
