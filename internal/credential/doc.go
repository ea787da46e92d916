// Package credential issues and verifies the short-lived HS256 tokens that
// carry a wallet holder's role and jurisdiction.
//
// An Issuer reads the attributes presented in the first credential of a
// TokenRequest and signs them with a shared secret; the token always
// expires one hour after issuance. A Verifier checks signature and expiry
// with the same secret and returns the Claims the gateway builds its
// decision input from. ExtractBearer parses the Authorization header.
//
// Every failure is a classified util.Error: missing attributes are
// KindValidation, signing failures KindUpstream, and anything wrong with a
// presented token KindAuth.
package credential
