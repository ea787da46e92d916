package secrets

import (
	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

// SourceType names where the secret comes from.
type SourceType string

// Source types in precedence order.
const (
	SourceTypeVault   SourceType = "vault"
	SourceTypeFile    SourceType = "file"
	SourceTypeEnv     SourceType = "env"
	SourceTypeLiteral SourceType = "literal"
)

// SourceConfig lists every configured origin of the secret.
type SourceConfig struct {
	// Vault is used when non-nil.
	Vault   *VaultConfig
	File    string
	FileKey string
	Env     string
	Literal string
}

// NewSource picks the highest-precedence configured source: Vault, then
// a file, then an environment variable, then the literal value.
func NewSource(cfg SourceConfig, logger observability.Logger) (Source, SourceType, error) {
	switch {
	case cfg.Vault != nil:
		vault, err := NewVaultKV(*cfg.Vault, logger)
		if err != nil {
			return nil, "", err
		}
		return vault, SourceTypeVault, nil
	case cfg.File != "":
		return File{Path: cfg.File, Key: cfg.FileKey}, SourceTypeFile, nil
	case cfg.Env != "":
		return Env(cfg.Env), SourceTypeEnv, nil
	default:
		return Literal(cfg.Literal), SourceTypeLiteral, nil
	}
}
