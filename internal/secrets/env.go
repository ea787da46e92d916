package secrets

import (
	"context"
	"fmt"
	"os"
)

// Env reads the secret from the named environment variable.
type Env string

// Secret returns the variable's value.
func (e Env) Secret(context.Context) ([]byte, error) {
	value, ok := os.LookupEnv(string(e))
	if !ok {
		return nil, fmt.Errorf("environment variable %s: %w", string(e), ErrSecretNotFound)
	}
	if value == "" {
		return nil, ErrEmptySecret
	}
	return []byte(value), nil
}
