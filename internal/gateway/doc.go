// Package gateway authorizes access to protected resources.
//
// Gateway.Authorize runs a fixed sequence for every request: the resource
// name is resolved first (404 before any authentication), then the bearer
// token is verified (401), then the policy decision point is queried with
// attributes taken only from the verified claims (403 on deny, 500 when
// the PDP cannot answer), and only on allow is the backend read (500 on
// failure). The returned error carries the util.Kind that selects the
// response status.
package gateway
