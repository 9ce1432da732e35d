package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

// Backend names accepted by Open.
const (
	BackendGCS   = "gcs"
	BackendLocal = "local"
)

// Config selects and configures an object store backend; apps/api reads it from STORAGE_*.
type Config struct {
	Backend  string `env:"STORAGE_BACKEND" envDefault:"gcs"`
	Bucket   string `env:"STORAGE_BUCKET"`                                 // required for gcs
	LocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/storage"` // required for local
}

// Open builds the configured Store. The returned close func releases backend clients.
func Open(ctx context.Context, cfg Config) (Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendGCS:
		if strings.TrimSpace(cfg.Bucket) == "" {
			return nil, nil, errors.New("bucket is required for the gcs backend")
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		return NewGCSStore(client, cfg.Bucket), func() { _ = client.Close() }, nil
	case BackendLocal:
		if strings.TrimSpace(cfg.LocalDir) == "" {
			return nil, nil, errors.New("local dir is required for the local backend")
		}
		return NewLocalStore(cfg.LocalDir), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("invalid storage backend %q (use gcs or local)", cfg.Backend)
	}
}
