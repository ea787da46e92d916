package credential

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/Deuthe/test-odrl-integration/internal/eventlog"
	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/util"
)

// ErrEmptySecret is returned when a signer is built without a secret.
var ErrEmptySecret = errors.New("signing secret is empty")

// Issuer signs tokens for presented wallet attributes.
type Issuer struct {
	secret     []byte
	subjectKey string
	issuer     string
	now        func() time.Time
	logger     observability.Logger
	metrics    *Metrics
	events     eventlog.Recorder
}

// IssuerOption is a functional option for the issuer.
type IssuerOption func(*Issuer)

// WithSubjectKey sets the value of the key claim.
func WithSubjectKey(key string) IssuerOption {
	return func(i *Issuer) {
		if key != "" {
			i.subjectKey = key
		}
	}
}

// WithIssuerName sets the iss claim. Empty omits it.
func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = name
	}
}

// WithIssuerClock sets the time source.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// WithIssuerLogger sets the logger.
func WithIssuerLogger(logger observability.Logger) IssuerOption {
	return func(i *Issuer) {
		i.logger = logger
	}
}

// WithIssuerMetrics sets the metrics.
func WithIssuerMetrics(metrics *Metrics) IssuerOption {
	return func(i *Issuer) {
		i.metrics = metrics
	}
}

// WithIssuerRecorder sets the dashboard event recorder.
func WithIssuerRecorder(r eventlog.Recorder) IssuerOption {
	return func(i *Issuer) {
		i.events = r
	}
}

// NewIssuer creates an issuer signing with secret.
func NewIssuer(secret []byte, opts ...IssuerOption) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	i := &Issuer{
		secret:     secret,
		subjectKey: DefaultSubjectKey,
		now:        time.Now,
		logger:     observability.NopLogger(),
		events:     eventlog.Discard,
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.metrics == nil {
		i.metrics = NewMetrics("", nil)
	}

	return i, nil
}

// Issue validates the first presented credential and returns a signed
// token valid for TokenLifetime.
func (i *Issuer) Issue(ctx context.Context, req *TokenRequest) (string, error) {
	i.events.Record("Received request to generate JWT...", eventlog.ClassSend)

	role := req.attribute(ClaimRole)
	jurisdiction := req.attribute(ClaimJurisdiction)
	if role == "" || jurisdiction == "" {
		i.metrics.RecordIssue(statusError, reasonMissingAttributes)
		i.events.Record("Invalid wallet data in JWT request.", eventlog.ClassFail)
		return "", util.NewError(util.KindValidation, "credential.issue",
			"missing role or jurisdiction attributes")
	}

	signed, err := i.sign(role, jurisdiction)
	if err != nil {
		i.metrics.RecordIssue(statusError, reasonSigning)
		i.events.Record("Error generating JWT: "+err.Error(), eventlog.ClassFail)
		i.logger.WithContext(ctx).Error("token signing failed", observability.Error(err))
		return "", util.NewErrorWithCause(util.KindUpstream, "credential.issue", "failed to sign token", err)
	}

	i.metrics.RecordIssue(statusSuccess, "")
	i.events.Record("JWT generated successfully.", eventlog.ClassSuccess)
	i.logger.WithContext(ctx).Debug("token issued",
		observability.String("role", role),
		observability.String("jurisdiction", jurisdiction),
	)
	return signed, nil
}

func (i *Issuer) sign(role, jurisdiction string) (string, error) {
	issuedAt := i.now().Truncate(time.Second)
	builder := jwt.NewBuilder().
		Claim(ClaimRole, role).
		Claim(ClaimJurisdiction, jurisdiction).
		Claim(ClaimKey, i.subjectKey).
		IssuedAt(issuedAt).
		Expiration(issuedAt.Add(TokenLifetime)).
		JwtID(uuid.NewString())
	if i.issuer != "" {
		builder = builder.Issuer(i.issuer)
	}

	token, err := builder.Build()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, i.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}
