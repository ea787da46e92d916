package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into the outcome taxonomy.
type Kind int

// Error kinds.
const (
	// KindUnknown is an unclassified error; it is reported as an upstream failure.
	KindUnknown Kind = iota
	// KindValidation is malformed or incomplete client input.
	KindValidation
	// KindAuth is a missing, malformed, invalid or expired credential.
	KindAuth
	// KindNotFound is an unknown logical resource.
	KindNotFound
	// KindDenied is a negative decision from the policy decision point.
	KindDenied
	// KindUpstream is a PDP, backend or signing failure.
	KindUpstream
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindDenied:
		return "denied"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per kind.
var (
	ErrValidation       = errors.New("validation failed")
	ErrAuth             = errors.New("authentication failed")
	ErrResourceNotFound = errors.New("resource not found")
	ErrPolicyDenied     = errors.New("policy denied")
	ErrUpstream         = errors.New("upstream failure")
	ErrConfigInvalid    = errors.New("invalid configuration")
)

// sentinelFor returns the sentinel error for a kind.
func sentinelFor(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuth:
		return ErrAuth
	case KindNotFound:
		return ErrResourceNotFound
	case KindDenied:
		return ErrPolicyDenied
	default:
		return ErrUpstream
	}
}

// Error is a classified error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Reason is the client-facing explanation of a denial.
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = sentinelFor(e.Kind).Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel of this error's kind.
func (e *Error) Is(target error) bool {
	if target == sentinelFor(e.Kind) {
		return true
	}
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError creates a classified error.
func NewError(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// NewErrorWithCause creates a classified error wrapping cause.
func NewErrorWithCause(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// NewDeniedError creates a KindDenied error carrying a client-facing reason.
func NewDeniedError(op, reason string) *Error {
	return &Error{Kind: KindDenied, Op: op, Message: "access denied", Reason: reason}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrResourceNotFound):
		return KindNotFound
	case errors.Is(err, ErrPolicyDenied):
		return KindDenied
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	}
	return KindUnknown
}

// ReasonOf returns the denial reason carried by err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// HTTPStatus maps an error to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}
