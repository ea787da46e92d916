package util

import (
	"context"
	"time"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyStartTime ctxKey = "start_time"
	ctxKeyResource  ctxKey = "resource"
)

// ContextWithRequestID returns a context carrying the request ID.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext returns the request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// ContextWithStartTime returns a context carrying the request start time.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext returns the request start time, or the zero time.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyStartTime).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// ContextWithResource returns a context carrying the logical resource name.
func ContextWithResource(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyResource, name)
}

// ResourceFromContext returns the logical resource name, or "".
func ResourceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyResource).(string); ok {
		return v
	}
	return ""
}

// NewTimeoutContext bounds parent by timeout. A non-positive timeout
// leaves the parent deadline in place.
func NewTimeoutContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// ElapsedTime returns the time since the request start, or 0.
func ElapsedTime(ctx context.Context) time.Duration {
	start := StartTimeFromContext(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}
