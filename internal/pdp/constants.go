package pdp

// HTTP header constants.
const (
	HeaderContentType = "Content-Type"
)

// Content type constants.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// Operation labels used in metrics and spans.
const (
	opPutPolicy = "put_policy"
	opDecide    = "decide"
	opPing      = "ping"
)

// Outcome labels used in metrics.
const (
	outcomeAllow     = "allow"
	outcomeDeny      = "deny"
	outcomeUndefined = "undefined"
	outcomeSuccess   = "success"
	outcomeError     = "error"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512
