package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deuthe/test-odrl-integration/internal/util"
)

const sampleBody = `{"location":"Kennedylaan","pm10": 21.4,"no2":[12,  14]}`

func TestFetcher_Fetch_Passthrough(t *testing.T) {
	t.Parallel()

	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/airquality_data_kennedylaan.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer server.Close()

	metrics := NewMetrics("test", prometheus.NewRegistry())
	fetcher := NewFetcher(WithMetrics(metrics))

	// Act
	payload, err := fetcher.Fetch(context.Background(), server.URL+"/airquality_data_kennedylaan.json")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []byte(sampleBody), payload.Body)
	assert.Equal(t, "application/json", payload.ContentType)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.fetchTotal.WithLabelValues(outcomeSuccess)))
}

func TestFetcher_Fetch_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "missing", http.StatusNotFound)
			},
			status: http.StatusNotFound,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			server := httptest.NewServer(tt.handler)
			defer server.Close()
			fetcher := NewFetcher()

			// Act
			payload, err := fetcher.Fetch(context.Background(), server.URL+"/x.json")

			// Assert
			assert.Nil(t, payload)
			assert.ErrorIs(t, err, util.ErrUpstream)
			assert.Equal(t, http.StatusInternalServerError, util.HTTPStatus(err))
			var se *util.StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
		})
	}
}

func TestFetcher_Fetch_Unreachable(t *testing.T) {
	t.Parallel()

	// Arrange
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	fetcher := NewFetcher(WithTimeout(time.Second))

	// Act
	_, err := fetcher.Fetch(context.Background(), url+"/x.json")

	// Assert
	assert.ErrorIs(t, err, util.ErrUpstream)
}

func TestFetcher_Fetch_ContextTimeout(t *testing.T) {
	t.Parallel()

	// Arrange
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	fetcher := NewFetcher()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Act
	_, err := fetcher.Fetch(ctx, server.URL+"/slow.json")

	// Assert
	assert.ErrorIs(t, err, util.ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcher_CircuitBreaker_Opens(t *testing.T) {
	t.Parallel()

	// Arrange
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	metrics := NewMetrics("test", nil)
	fetcher := NewFetcher(WithMetrics(metrics), WithCircuitBreaker(BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}))

	// Act
	for i := 0; i < 2; i++ {
		_, err := fetcher.Fetch(context.Background(), server.URL)
		require.Error(t, err)
	}
	_, err := fetcher.Fetch(context.Background(), server.URL)

	// Assert
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, util.ErrUpstream)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.breakerState))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.fetchTotal.WithLabelValues(outcomeRejected)))
}

func TestFetcher_CircuitBreaker_PassesSuccess(t *testing.T) {
	t.Parallel()

	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()
	fetcher := NewFetcher(WithCircuitBreaker(BreakerConfig{MinRequests: 1, FailureRatio: 0.5}))

	// Act
	payload, err := fetcher.Fetch(context.Background(), server.URL)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), payload.Body)
}
