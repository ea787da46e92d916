// Package server exposes the PAP over HTTP with gin.
//
// Routes:
//
//	POST /policies            compile and publish a usage policy
//	POST /auth/token          issue a credential for wallet attributes
//	GET  /data/:resourceName  authorize and pass through a protected resource
//	GET  /logs                drain the dashboard event buffer
//	GET  /logs/stream         websocket stream of dashboard events
//	GET  /health, /live       liveness
//	GET  /ready               readiness, including a PDP ping
//	GET  /metrics             Prometheus exposition
//
// Errors are mapped from their util.Kind to fixed JSON bodies in one
// place, see writeError.
package server
