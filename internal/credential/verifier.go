package credential

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/util"
)

// Verifier checks tokens signed by an Issuer sharing the same secret.
type Verifier struct {
	secret  []byte
	issuer  string
	now     func() time.Time
	logger  observability.Logger
	metrics *Metrics
}

// VerifierOption is a functional option for the verifier.
type VerifierOption func(*Verifier)

// WithExpectedIssuer requires the iss claim to equal name.
func WithExpectedIssuer(name string) VerifierOption {
	return func(v *Verifier) {
		v.issuer = name
	}
}

// WithVerifierClock sets the time source used for expiry checks.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// WithVerifierLogger sets the logger.
func WithVerifierLogger(logger observability.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithVerifierMetrics sets the metrics.
func WithVerifierMetrics(metrics *Metrics) VerifierOption {
	return func(v *Verifier) {
		v.metrics = metrics
	}
}

// NewVerifier creates a verifier for secret.
func NewVerifier(secret []byte, opts ...VerifierOption) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	v := &Verifier{
		secret: secret,
		now:    time.Now,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.metrics == nil {
		v.metrics = NewMetrics("", nil)
	}

	return v, nil
}

// Verify checks the signature and expiry of token with no clock skew and
// returns its claims.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	start := time.Now()

	if token == "" {
		v.metrics.RecordVerification(statusError, reasonEmptyToken, time.Since(start))
		return nil, util.NewError(util.KindAuth, "credential.verify", "token is empty")
	}

	parseOpts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(v.now)),
		jwt.WithAcceptableSkew(0),
	}
	if v.issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.Parse([]byte(token), parseOpts...)
	if err != nil {
		reason := reasonInvalid
		if errors.Is(err, jwt.ErrTokenExpired()) {
			reason = reasonExpired
		}
		v.metrics.RecordVerification(statusError, reason, time.Since(start))
		v.logger.WithContext(ctx).Debug("token rejected",
			observability.String("reason", reason),
			observability.Error(err),
		)
		return nil, util.NewErrorWithCause(util.KindAuth, "credential.verify", "invalid token", err)
	}

	claims := &Claims{
		Role:         stringClaim(parsed, ClaimRole),
		Jurisdiction: stringClaim(parsed, ClaimJurisdiction),
		Key:          stringClaim(parsed, ClaimKey),
		Issuer:       parsed.Issuer(),
		ID:           parsed.JwtID(),
		IssuedAt:     parsed.IssuedAt(),
		ExpiresAt:    parsed.Expiration(),
	}

	v.metrics.RecordVerification(statusSuccess, "", time.Since(start))
	return claims, nil
}

func stringClaim(token jwt.Token, name string) string {
	raw, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}
