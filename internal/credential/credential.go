// Package credential persists the single API key a panel uses.
package credential

import (
	"context"
	"fmt"
	"strings"
)

// Key names the stored API key in every backend.
const Key = "openai_api_key"

type Credential struct {
	APIKey string
}

// Store is a persistent key-value backend holding the credential.
type Store interface {
	// Load returns nil, nil when nothing was ever saved
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, credential Credential) error
}

// Open returns the store for kind ("file" or "sqlite") at path.
func Open(kind, path string) (Store, error) {
	switch strings.ToLower(kind) {
	case "", "file":
		return NewFileStore(path), nil
	case "sqlite":
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", kind)
	}
}
