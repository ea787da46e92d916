package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/util"
)

const tracerName = "github.com/Deuthe/test-odrl-integration/internal/backend"

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// Payload is a backend response passed through to the client.
type Payload struct {
	Body        []byte
	ContentType string
}

// Fetcher reads payloads from the data provider.
type Fetcher struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     observability.Logger
	metrics    *Metrics
	breakerCfg *BreakerConfig
}

// Option is a functional option for the fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

// WithTimeout bounds each fetch.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = metrics
	}
}

// WithCircuitBreaker guards fetches with a circuit breaker.
func WithCircuitBreaker(cfg BreakerConfig) Option {
	return func(f *Fetcher) {
		f.breakerCfg = &cfg
	}
}

// NewFetcher creates a fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.metrics == nil {
		f.metrics = NewMetrics("", nil)
	}
	if f.breakerCfg != nil {
		f.breaker = newBreaker(*f.breakerCfg, f.logger, f.metrics)
	}

	return f
}

// Fetch GETs locator and returns its body unmodified.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (*Payload, error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "backend.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url.full", locator)),
	)
	defer span.End()

	var (
		payload *Payload
		err     error
	)
	if f.breaker != nil {
		var result interface{}
		result, err = f.breaker.Execute(func() (interface{}, error) {
			return f.get(ctx, locator)
		})
		if err == nil {
			payload = result.(*Payload)
		}
	} else {
		payload, err = f.get(ctx, locator)
	}

	if err != nil {
		outcome := outcomeError
		if isBreakerRejection(err) {
			outcome = outcomeRejected
			err = fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		f.metrics.RecordFetch(outcome, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.logger.WithContext(ctx).Warn("backend fetch failed",
			observability.String("locator", locator),
			observability.String("outcome", outcome),
			observability.Error(err),
		)
		return nil, util.NewErrorWithCause(util.KindUpstream, "backend.fetch", "failed to fetch resource", err)
	}

	f.metrics.RecordFetch(outcomeSuccess, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.body.size", len(payload.Body)))
	return payload, nil
}

func (f *Fetcher) get(ctx context.Context, locator string) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	observability.InjectTraceContext(ctx, req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if !util.IsSuccess(resp.StatusCode) {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, util.NewStatusError(resp.StatusCode, string(body))
	}

	return &Payload{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}
