package policy

import (
	"context"
	"fmt"

	"github.com/Deuthe/test-odrl-integration/internal/eventlog"
	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/util"
)

// DefaultPolicyID is the PDP module id policies are published under.
const DefaultPolicyID = "eindhoven"

// Publisher uploads a compiled module to the decision point.
type Publisher interface {
	PutPolicy(ctx context.Context, id, module string) error
}

// Service compiles and publishes usage policies. Every Apply replaces
// the module at the PDP; concurrent applies are last-write-wins.
type Service struct {
	compiler  *Compiler
	publisher Publisher
	policyID  string
	logger    observability.Logger
	events    eventlog.Recorder
}

// ServiceOption is a functional option for the service.
type ServiceOption func(*Service)

// WithPolicyID sets the module id.
func WithPolicyID(id string) ServiceOption {
	return func(s *Service) {
		if id != "" {
			s.policyID = id
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRecorder sets the dashboard event recorder.
func WithRecorder(r eventlog.Recorder) ServiceOption {
	return func(s *Service) {
		s.events = r
	}
}

// NewService creates a policy service.
func NewService(compiler *Compiler, publisher Publisher, opts ...ServiceOption) *Service {
	s := &Service{
		compiler:  compiler,
		publisher: publisher,
		policyID:  DefaultPolicyID,
		logger:    observability.NopLogger(),
		events:    eventlog.Discard,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// PolicyID returns the module id policies are published under.
func (s *Service) PolicyID() string {
	return s.policyID
}

// Apply compiles doc and publishes it. A failed publish leaves whatever
// module the PDP held before.
func (s *Service) Apply(ctx context.Context, doc *UsagePolicy) (*CompiledRule, error) {
	logger := s.logger.WithContext(ctx)

	rule, err := s.compiler.Compile(doc)
	if err != nil {
		s.events.Record("Invalid policy document.", eventlog.ClassFail)
		return nil, err
	}

	s.events.Record("Generated new Rego policy. Pushing to OPA...", eventlog.ClassInfo)
	logger.Debug("policy compiled",
		observability.String("uid", doc.UID),
		observability.Int("predicates", rule.Predicates),
	)

	if err := s.publisher.PutPolicy(ctx, s.policyID, rule.Module); err != nil {
		s.events.Record(fmt.Sprintf("Error updating policy in OPA: %v", err), eventlog.ClassFail)
		logger.Error("policy publish failed",
			observability.String("policy_id", s.policyID),
			observability.Error(err),
		)
		if util.KindOf(err) == util.KindUnknown {
			err = util.NewErrorWithCause(util.KindUpstream, "policy.apply", "publish failed", err)
		}
		return nil, err
	}

	s.events.Record("Policy updated successfully in OPA.", eventlog.ClassSuccess)
	logger.Info("policy active",
		observability.String("policy_id", s.policyID),
		observability.String("uid", doc.UID),
		observability.Int("predicates", rule.Predicates),
	)

	return rule, nil
}
