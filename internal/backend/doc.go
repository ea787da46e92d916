// Package backend reads protected payloads from the data provider.
//
// A Fetcher issues a plain GET to a resolved locator and returns the body
// byte-for-byte together with its content type. Any transport failure or
// non-2xx status is a util.KindUpstream error. An optional circuit breaker
// (sony/gobreaker) short-circuits calls while the provider keeps failing.
package backend
