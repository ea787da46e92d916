package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

// Sentinel errors.
var (
	ErrEmptySecret    = errors.New("signing secret is empty")
	ErrSecretNotFound = errors.New("secret not found")
)

// Source yields the signing secret.
type Source interface {
	Secret(ctx context.Context) ([]byte, error)
}

// Literal is a secret held in configuration.
type Literal string

// Secret returns the literal value.
func (l Literal) Secret(context.Context) ([]byte, error) {
	if l == "" {
		return nil, ErrEmptySecret
	}
	return []byte(l), nil
}

// VaultConfig locates the secret in Vault.
type VaultConfig struct {
	Address   string
	Token     string
	Namespace string
	Mount     string
	Path      string
	Key       string
	Timeout   time.Duration
}

// VaultKV reads the secret from a KV version 2 mount.
type VaultKV struct {
	config VaultConfig
	api    *vaultapi.Client
	logger observability.Logger
}

// NewVaultKV creates a Vault-backed source.
func NewVaultKV(cfg VaultConfig, logger observability.Logger) (*VaultKV, error) {
	if cfg.Mount == "" || cfg.Path == "" || cfg.Key == "" {
		return nil, fmt.Errorf("vault mount, path and key are required")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address
	if cfg.Timeout > 0 {
		apiConfig.Timeout = cfg.Timeout
	}
	apiConfig.MaxRetries = 0

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		api.SetToken(cfg.Token)
	}
	if cfg.Namespace != "" {
		api.SetNamespace(cfg.Namespace)
	}

	return &VaultKV{
		config: cfg,
		api:    api,
		logger: logger.With(observability.String("component", "secrets")),
	}, nil
}

// Secret reads mount/data/path and returns the value under key.
func (v *VaultKV) Secret(ctx context.Context) ([]byte, error) {
	fullPath := fmt.Sprintf("%s/data/%s", v.config.Mount, v.config.Path)

	secret, err := v.api.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fullPath, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%s: %w", fullPath, ErrSecretNotFound)
	}

	// deleted versions carry data: null
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: %w", fullPath, ErrSecretNotFound)
	}

	value, ok := data[v.config.Key].(string)
	if !ok {
		return nil, fmt.Errorf("%s key %q: %w", fullPath, v.config.Key, ErrSecretNotFound)
	}
	if value == "" {
		return nil, ErrEmptySecret
	}

	v.logger.Debug("signing secret read from vault",
		observability.String("path", fullPath),
		observability.String("key", v.config.Key),
	)
	return []byte(value), nil
}
