package policy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deuthe/test-odrl-integration/internal/eventlog"
	"github.com/Deuthe/test-odrl-integration/internal/util"
)

type fakePublisher struct {
	mu      sync.Mutex
	id      string
	module  string
	calls   int
	failErr error
}

func (f *fakePublisher) PutPolicy(_ context.Context, id, module string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return f.failErr
	}
	f.id = id
	f.module = module
	return nil
}

func TestService_Apply(t *testing.T) {
	t.Parallel()

	// Arrange
	pub := &fakePublisher{}
	events := eventlog.New()
	svc := NewService(NewCompiler(CompilerConfig{}), pub, WithRecorder(events))

	// Act
	rule, err := svc.Apply(context.Background(), decodePolicy(t, eindhovenPolicy))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicyID, pub.id)
	assert.Equal(t, rule.Module, pub.module)

	recorded := events.Drain()
	require.Len(t, recorded, 2)
	assert.Equal(t, eventlog.ClassInfo, recorded[0].StatusClass)
	assert.Equal(t, "Policy updated successfully in OPA.", recorded[1].Message)
	assert.Equal(t, eventlog.ClassSuccess, recorded[1].StatusClass)
}

func TestService_Apply_CustomPolicyID(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	svc := NewService(NewCompiler(CompilerConfig{}), pub, WithPolicyID("veldhoven"))

	_, err := svc.Apply(context.Background(), &UsagePolicy{})

	require.NoError(t, err)
	assert.Equal(t, "veldhoven", pub.id)
	assert.Equal(t, "veldhoven", svc.PolicyID())
}

func TestService_Apply_PublishFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		failErr error
	}{
		{name: "classified upstream error", failErr: util.NewError(util.KindUpstream, "pdp.put_policy", "policy upload failed")},
		{name: "plain error is classified", failErr: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			pub := &fakePublisher{failErr: tt.failErr}
			events := eventlog.New()
			svc := NewService(NewCompiler(CompilerConfig{}), pub, WithRecorder(events))

			// Act
			rule, err := svc.Apply(context.Background(), decodePolicy(t, eindhovenPolicy))

			// Assert
			assert.Nil(t, rule)
			assert.ErrorIs(t, err, util.ErrUpstream)
			assert.Equal(t, 1, pub.calls, "publish is not retried")
			recorded := events.Drain()
			require.NotEmpty(t, recorded)
			assert.Equal(t, eventlog.ClassFail, recorded[len(recorded)-1].StatusClass)
		})
	}
}

func TestService_Apply_NilDocument(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	svc := NewService(NewCompiler(CompilerConfig{}), pub)

	_, err := svc.Apply(context.Background(), nil)

	assert.ErrorIs(t, err, util.ErrValidation)
	assert.Zero(t, pub.calls)
}
