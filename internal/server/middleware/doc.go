// Package middleware provides the gin middleware chain of the PAP HTTP
// surface: panic recovery, request ids and access logging, permissive
// CORS, request metrics, server spans, request body limits and per-client
// rate limiting.
package middleware
