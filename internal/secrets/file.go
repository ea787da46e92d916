package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File reads the secret from a mounted file. A plain file holds the raw
// value; a .json, .yaml or .yml file holds a map and Key selects the entry.
type File struct {
	Path string
	Key  string
}

// Secret reads the file.
func (f File) Secret(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path) //nolint:gosec // operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", f.Path, ErrSecretNotFound)
		}
		return nil, fmt.Errorf("failed to read secret file %s: %w", f.Path, err)
	}

	value, err := f.extract(data)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, ErrEmptySecret
	}
	return []byte(value), nil
}

func (f File) extract(data []byte) (string, error) {
	var (
		entries map[string]interface{}
		err     error
	)

	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".json":
		err = json.Unmarshal(data, &entries)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		// mounted secrets usually end in a newline
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to parse secret file %s: %w", f.Path, err)
	}

	if f.Key == "" {
		return "", fmt.Errorf("secret file %s: key is required for structured files", f.Path)
	}
	value, ok := entries[f.Key].(string)
	if !ok {
		return "", fmt.Errorf("%s key %q: %w", f.Path, f.Key, ErrSecretNotFound)
	}
	return value, nil
}
