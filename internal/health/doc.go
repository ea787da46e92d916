// Package health provides the liveness and readiness probes.
//
// Liveness only reports that the process serves requests. Readiness runs
// every registered check under a shared deadline; the PAP registers a
// ping of the policy decision point, so the service reports unready
// while OPA is unreachable.
package health
