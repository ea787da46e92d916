// Package secrets resolves the token signing secret.
//
// The secret comes from a Vault KV version 2 entry when Vault is enabled,
// otherwise from a mounted file, a named environment variable or the
// literal configured value, in that order. An empty result is always an
// error: the server refuses to start without a secret.
package secrets
