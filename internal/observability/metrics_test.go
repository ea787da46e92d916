package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")

	assert.NotNil(t, m.Registry())
	assert.NotNil(t, m.requestsTotal)
	assert.NotNil(t, m.requestDuration)
	assert.NotNil(t, m.activeRequests)
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	// Arrange
	m := NewMetrics("test")

	// Act
	m.RecordRequest("GET", "/data/:resourceName", 200, 10*time.Millisecond, 512)
	m.RecordRequest("GET", "/data/:resourceName", 200, 5*time.Millisecond, 128)
	m.RecordRequest("GET", "", 404, time.Millisecond, 0)

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/data/:resourceName", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", UnmatchedRoute, "404")))
}

func TestMetrics_ActiveRequestsAndRateLimit(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")

	m.IncrementActiveRequests()
	m.IncrementActiveRequests()
	m.DecrementActiveRequests()
	m.RecordRateLimitHit("/auth/token")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeRequests))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitHits.WithLabelValues("/auth/token")))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	// Arrange
	m := NewMetrics("test")
	m.SetBuildInfo("1.0.0", "abc123", "2026-01-01")
	m.RecordRequest("POST", "/policies", 200, time.Millisecond, 42)

	// Act
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "test_http_requests_total"))
	assert.True(t, strings.Contains(string(body), "test_build_info"))
}
