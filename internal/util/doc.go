// Package util provides utility functions and types shared by the PAP.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for the stable outcome classes that
//     callers check with errors.Is(). Example: ErrResourceNotFound.
//   - The structured *Error type for context-rich errors. It carries the
//     outcome Kind, the failing operation and the underlying cause, and
//     implements Error(), Unwrap() and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// Every error returned to the HTTP layer resolves to exactly one Kind,
// and HTTPStatus maps that Kind to a response status:
//
//	validation -> 400, auth -> 401, not_found -> 404,
//	denied -> 403, upstream/unknown -> 500
//
// # Context Helpers
//
//	ctx = util.ContextWithRequestID(ctx, "req-123")
//	requestID := util.RequestIDFromContext(ctx)
package util
