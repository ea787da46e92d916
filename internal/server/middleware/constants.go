package middleware

// Header names.
const (
	HeaderRequestID  = "X-Request-ID"
	HeaderRetryAfter = "Retry-After"
)

// Context keys stored on the gin context.
const (
	RequestIDKey = "requestID"
	SpanKey      = "otel-span"
)
