package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Deuthe/test-odrl-integration/internal/backend"
	"github.com/Deuthe/test-odrl-integration/internal/credential"
	"github.com/Deuthe/test-odrl-integration/internal/eventlog"
	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/pdp"
	"github.com/Deuthe/test-odrl-integration/internal/resource"
	"github.com/Deuthe/test-odrl-integration/internal/util"
)

const tracerName = "github.com/Deuthe/test-odrl-integration/internal/gateway"

// DenyReason is returned to the client on every negative decision.
const DenyReason = "ODRL Policy constraints not met."

// ErrMissingCredential distinguishes an absent or malformed Authorization
// header from a token that failed verification.
var ErrMissingCredential = errors.New("authorization header missing or invalid")

// Resolver maps resource names to descriptors.
type Resolver interface {
	Resolve(name string) (resource.Descriptor, error)
}

// Verifier checks bearer tokens.
type Verifier interface {
	Verify(ctx context.Context, token string) (*credential.Claims, error)
}

// Decider queries the policy decision point.
type Decider interface {
	Decide(ctx context.Context, req *pdp.DecisionRequest) (*pdp.DecisionResult, error)
}

// Fetcher reads backend payloads.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*backend.Payload, error)
}

// Request is a protected resource request.
type Request struct {
	ResourceName  string
	Method        string
	Path          string
	Authorization string
}

// Response is the payload of an allowed request.
type Response struct {
	Body        []byte
	ContentType string
	Resource    resource.Descriptor
	Claims      *credential.Claims
}

// Gateway is the authorization state machine.
type Gateway struct {
	resolver        Resolver
	verifier        Verifier
	decider         Decider
	fetcher         Fetcher
	upstreamTimeout time.Duration
	logger          observability.Logger
	metrics         *Metrics
	events          eventlog.Recorder
}

// Option is a functional option for the gateway.
type Option func(*Gateway)

// WithUpstreamTimeout bounds each PDP and backend call. Zero disables it.
func WithUpstreamTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.upstreamTimeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithRecorder sets the dashboard event recorder.
func WithRecorder(r eventlog.Recorder) Option {
	return func(g *Gateway) {
		g.events = r
	}
}

// New creates a gateway.
func New(resolver Resolver, verifier Verifier, decider Decider, fetcher Fetcher, opts ...Option) *Gateway {
	g := &Gateway{
		resolver: resolver,
		verifier: verifier,
		decider:  decider,
		fetcher:  fetcher,
		logger:   observability.NopLogger(),
		events:   eventlog.Discard,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = NewMetrics("", nil)
	}

	return g
}

// Authorize runs the access sequence for req.
func (g *Gateway) Authorize(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gateway.authorize",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("pap.resource", req.ResourceName)),
	)
	defer span.End()

	resp, outcome, err := g.authorize(ctx, req)

	g.metrics.RecordAuthorization(metricResource(outcome, req.ResourceName), outcome, time.Since(start))
	span.SetAttributes(attribute.String("pap.outcome", outcome))
	if err != nil && outcome == OutcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	g.logger.WithContext(ctx).Info("protected resource request",
		observability.String("resource", req.ResourceName),
		observability.String("outcome", outcome),
		observability.Duration("duration", time.Since(start)),
	)

	return resp, err
}

func (g *Gateway) authorize(ctx context.Context, req *Request) (*Response, string, error) {
	const op = "gateway.authorize"

	g.events.Record("Received request for protected data: "+req.Path, eventlog.ClassSend)

	desc, err := g.resolver.Resolve(req.ResourceName)
	if err != nil {
		g.events.Record(fmt.Sprintf("Requested resource %q does not exist.", req.ResourceName), eventlog.ClassFail)
		return nil, OutcomeNotFound, err
	}

	token, err := credential.ExtractBearer(req.Authorization)
	if err != nil {
		g.events.Record("Authorization header missing or invalid.", eventlog.ClassFail)
		return nil, OutcomeUnauthorized, util.NewErrorWithCause(util.KindAuth, op,
			"missing credential", fmt.Errorf("%w: %w", ErrMissingCredential, err))
	}

	claims, err := g.verifier.Verify(ctx, token)
	if err != nil {
		g.events.Record("Invalid JWT provided.", eventlog.ClassFail)
		return nil, OutcomeUnauthorized, util.NewErrorWithCause(util.KindAuth, op, "invalid credential", err)
	}
	g.events.Record("JWT is valid.", eventlog.ClassSuccess)

	decisionReq := &pdp.DecisionRequest{
		Method:     req.Method,
		Path:       req.Path,
		Attributes: claims.Attributes(),
	}

	g.events.Record(fmt.Sprintf("Querying OPA for decision with attributes: role=%s, jurisdiction=%s",
		claims.Role, claims.Jurisdiction), eventlog.ClassEval)

	result, err := g.decide(ctx, decisionReq)
	if err != nil {
		g.events.Record("Internal error during OPA query or proxying: "+err.Error(), eventlog.ClassFail)
		return nil, OutcomeError, wrapUpstream(op, "decision query failed", err)
	}

	if result == nil {
		result = &pdp.DecisionResult{}
	}
	if !result.Allow {
		g.events.Record("OPA decision: DENY", eventlog.ClassFail)
		g.logger.WithContext(ctx).Debug("access denied",
			observability.String("resource", desc.Name),
			observability.String("pdp_reason", result.Reason),
			observability.Bool("defined", result.Defined),
		)
		return nil, OutcomeDenied, util.NewDeniedError(op, DenyReason)
	}

	g.events.Record("OPA decision: ALLOW", eventlog.ClassSuccess)
	g.events.Record("Proxying request to mock-data service for file: "+desc.Locator, eventlog.ClassInfo)

	payload, err := g.fetch(ctx, desc.Locator)
	if err != nil {
		g.events.Record("Internal error during OPA query or proxying: "+err.Error(), eventlog.ClassFail)
		return nil, OutcomeError, wrapUpstream(op, "backend fetch failed", err)
	}

	return &Response{
		Body:        payload.Body,
		ContentType: payload.ContentType,
		Resource:    desc,
		Claims:      claims,
	}, OutcomeAllowed, nil
}

func (g *Gateway) decide(ctx context.Context, req *pdp.DecisionRequest) (*pdp.DecisionResult, error) {
	ctx, cancel := util.NewTimeoutContext(ctx, g.upstreamTimeout)
	defer cancel()
	return g.decider.Decide(ctx, req)
}

func (g *Gateway) fetch(ctx context.Context, locator string) (*backend.Payload, error) {
	ctx, cancel := util.NewTimeoutContext(ctx, g.upstreamTimeout)
	defer cancel()
	return g.fetcher.Fetch(ctx, locator)
}

// wrapUpstream keeps an already classified upstream error and classifies
// anything else.
func wrapUpstream(op, message string, err error) error {
	if util.KindOf(err) == util.KindUpstream {
		return err
	}
	return util.NewErrorWithCause(util.KindUpstream, op, message, err)
}

// metricResource bounds label cardinality: unknown names collapse.
func metricResource(outcome, name string) string {
	if outcome == OutcomeNotFound {
		return "unknown"
	}
	return name
}
