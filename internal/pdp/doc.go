// Package pdp is the HTTP client for the policy decision point, an Open
// Policy Agent instance.
//
// It speaks the OPA REST API:
//
//	PUT  {url}/v1/policies/{id}        text/plain Rego module
//	POST {url}/v1/data/{decisionPath}  {"input": DecisionRequest}
//	GET  {url}/health
//
// Calls are never retried. Every failure surfaces as an upstream error
// so callers can tell it apart from a negative decision.
package pdp
