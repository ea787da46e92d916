package pdp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/util"
)

const tracerName = "github.com/Deuthe/test-odrl-integration/internal/pdp"

// Config addresses the PDP.
type Config struct {
	// URL is the OPA base URL, e.g. http://opa:8181.
	URL string
	// DecisionPath is the data path queried for decisions, e.g.
	// httpauthz/decision.
	DecisionPath string
	// Headers are added to every request.
	Headers map[string]string
	// Timeout bounds each call. Zero means no client-side bound.
	Timeout time.Duration
}

// Client talks to an Open Policy Agent instance.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
	logger     observability.Logger
	metrics    *Metrics
}

// Option is a functional option for the client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// NewClient creates a new PDP client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := util.ValidateURL(cfg.URL); err != nil {
		return nil, fmt.Errorf("pdp url: %w", err)
	}
	if strings.Trim(cfg.DecisionPath, "/") == "" {
		return nil, fmt.Errorf("pdp decision path is required")
	}

	c := &Client{
		config:     cfg,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = NewMetrics("", nil)
	}

	return c, nil
}

// PutPolicy uploads a Rego module under id, replacing any module with
// the same id.
func (c *Client) PutPolicy(ctx context.Context, id, module string) error {
	start := time.Now()
	ctx, span := c.startSpan(ctx, opPutPolicy, attribute.String("pdp.policy_id", id))
	defer span.End()

	endpoint := fmt.Sprintf("%s/v1/policies/%s", c.baseURL, url.PathEscape(id))
	_, err := c.do(ctx, http.MethodPut, endpoint, ContentTypeText, []byte(module))
	if err != nil {
		c.fail(span, opPutPolicy, start, err)
		return util.NewErrorWithCause(util.KindUpstream, "pdp.put_policy", "policy upload failed", err)
	}

	c.metrics.RecordRequest(opPutPolicy, outcomeSuccess, time.Since(start))
	c.logger.Debug("policy uploaded",
		observability.String("policy_id", id),
		observability.Int("bytes", len(module)),
	)
	return nil
}

// Decide queries the decision document with req as input. Only a boolean
// true allows. An object result is read for its reason and denies, as
// does anything else, including an undefined document.
func (c *Client) Decide(ctx context.Context, req *DecisionRequest) (*DecisionResult, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, opDecide,
		attribute.String("pdp.decision_path", c.config.DecisionPath),
		attribute.String("http.request.method", req.Method),
	)
	defer span.End()

	body, err := json.Marshal(map[string]interface{}{"input": req})
	if err != nil {
		c.fail(span, opDecide, start, err)
		return nil, util.NewErrorWithCause(util.KindUpstream, "pdp.decide", "failed to marshal input", err)
	}

	endpoint := fmt.Sprintf("%s/v1/data/%s", c.baseURL, strings.Trim(c.config.DecisionPath, "/"))
	respBody, err := c.do(ctx, http.MethodPost, endpoint, ContentTypeJSON, body)
	if err != nil {
		c.fail(span, opDecide, start, err)
		return nil, util.NewErrorWithCause(util.KindUpstream, "pdp.decide", "decision query failed", err)
	}

	result, err := parseDecision(respBody)
	if err != nil {
		c.fail(span, opDecide, start, err)
		return nil, util.NewErrorWithCause(util.KindUpstream, "pdp.decide", "undecodable decision", err)
	}

	outcome := outcomeDeny
	switch {
	case !result.Defined:
		outcome = outcomeUndefined
	case result.Allow:
		outcome = outcomeAllow
	}
	c.metrics.RecordRequest(opDecide, outcome, time.Since(start))
	span.SetAttributes(attribute.String("pdp.outcome", outcome))

	c.logger.WithContext(ctx).Debug("decision received",
		observability.String("outcome", outcome),
		observability.String("reason", result.Reason),
		observability.String("decision_id", result.DecisionID),
	)

	return result, nil
}

// Ping checks PDP liveness.
func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	if _, err := c.do(ctx, http.MethodGet, c.baseURL+"/health", "", nil); err != nil {
		c.metrics.RecordRequest(opPing, outcomeError, time.Since(start))
		return util.NewErrorWithCause(util.KindUpstream, "pdp.ping", "health check failed", err)
	}
	c.metrics.RecordRequest(opPing, outcomeSuccess, time.Since(start))
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set(HeaderContentType, contentType)
	}
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
	observability.InjectTraceContext(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if !util.IsSuccess(resp.StatusCode) {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return nil, util.NewStatusError(resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func parseDecision(body []byte) (*DecisionResult, error) {
	var resp struct {
		Result     interface{} `json:"result"`
		DecisionID string      `json:"decision_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &DecisionResult{DecisionID: resp.DecisionID}

	switch v := resp.Result.(type) {
	case nil:
	case bool:
		result.Defined = true
		result.Allow = v
	case map[string]interface{}:
		// only a boolean result can allow; an object is read for its reason
		result.Defined = true
		if reason, ok := v["reason"].(string); ok {
			result.Reason = reason
		} else {
			result.Reason = "non-boolean result"
		}
	default:
		result.Defined = true
		result.Reason = fmt.Sprintf("unsupported result type %T", v)
	}

	return result, nil
}

func (c *Client) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pdp."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func (c *Client) fail(span trace.Span, op string, start time.Time, err error) {
	c.metrics.RecordRequest(op, outcomeError, time.Since(start))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Warn("pdp request failed",
		observability.String("operation", op),
		observability.Error(err),
	)
}
