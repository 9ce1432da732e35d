package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps objects on the local filesystem under BasePath. Intended for local dev.
type LocalStore struct {
	BasePath string
}

func NewLocalStore(basePath string) *LocalStore {
	if basePath == "" {
		panic("local store requires basePath")
	}
	return &LocalStore{BasePath: basePath}
}

func (s *LocalStore) path(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.BasePath, filepath.FromSlash(cleaned)), nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ string) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("commit object: %w", err)
	}
	return nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *LocalStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	cleaned, err := cleanPrefix(prefix)
	if err != nil {
		return 0, err
	}
	dir := filepath.Join(s.BasePath, filepath.FromSlash(cleaned))

	count := 0
	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("walk prefix: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("delete prefix: %w", err)
	}
	return count, nil
}

// Check ensures the base directory exists; this is safe/idempotent for local dev.
func (s *LocalStore) Check(ctx context.Context) error {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("create base path: %w", err)
	}
	return nil
}

var _ Store = (*LocalStore)(nil)
