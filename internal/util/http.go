package util

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError signals that an upstream answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// NewStatusError creates a StatusError.
func NewStatusError(statusCode int, body string) *StatusError {
	return &StatusError{StatusCode: statusCode, Body: body}
}

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

// IsServerError reports whether err is a StatusError with a 5xx status.
func IsServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= http.StatusInternalServerError
}
