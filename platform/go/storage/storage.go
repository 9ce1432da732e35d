package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Store persists media objects under keys relative to the store root.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object under prefix and returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Check verifies the backend is reachable.
	Check(ctx context.Context) error
}

// ObjectLocation describes where a blob should live.
type ObjectLocation struct {
	Bucket   string
	FullPath string
}

// ResolveObjectLocation combines the deployment bucket and a relative object key.
//   - bucket must come from deployment configuration (one bucket per environment class).
//   - key is produced by the media path generator, e.g. "tenants/<id>/media/<assetId>/file.png".
func ResolveObjectLocation(bucket string, key string) (ObjectLocation, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return ObjectLocation{}, fmt.Errorf("bucket is required")
	}

	cleaned, err := CleanKey(key)
	if err != nil {
		return ObjectLocation{}, err
	}

	return ObjectLocation{Bucket: bucket, FullPath: cleaned}, nil
}

// CleanKey validates that key is a relative path that stays inside the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("object key %q must be relative", key)
	}

	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("object key %q escapes the storage root", key)
	}
	return cleaned, nil
}

// cleanPrefix validates a deletion prefix and keeps its trailing slash so that
// "tenants/a/" never matches "tenants/ab/".
func cleanPrefix(prefix string) (string, error) {
	cleaned, err := CleanKey(prefix)
	if err != nil {
		return "", err
	}
	return cleaned + "/", nil
}
