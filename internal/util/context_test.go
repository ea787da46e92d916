package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	t.Parallel()

	// Arrange
	start := time.Now().Add(-time.Second)
	ctx := context.Background()

	// Act
	ctx = ContextWithRequestID(ctx, "req-123")
	ctx = ContextWithStartTime(ctx, start)
	ctx = ContextWithResource(ctx, "airquality")

	// Assert
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Equal(t, start, StartTimeFromContext(ctx))
	assert.Equal(t, "airquality", ResourceFromContext(ctx))
	assert.GreaterOrEqual(t, ElapsedTime(ctx), time.Second)
}

func TestContextValues_Missing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, ResourceFromContext(ctx))
	assert.True(t, StartTimeFromContext(ctx).IsZero())
	assert.Zero(t, ElapsedTime(ctx))
}

func TestNewTimeoutContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := NewTimeoutContext(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)

	ctx2, cancel2 := NewTimeoutContext(context.Background(), 0)
	defer cancel2()
	_, hasDeadline = ctx2.Deadline()
	assert.False(t, hasDeadline)
}
