package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore keeps objects in a single Google Cloud Storage bucket.
type GCSStore struct {
	Client *storage.Client
	Bucket string
}

func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	if client == nil {
		panic("gcs store requires client")
	}
	if bucket == "" {
		panic("gcs store requires bucket")
	}
	return &GCSStore{Client: client, Bucket: bucket}
}

func (s *GCSStore) object(key string) (*storage.ObjectHandle, error) {
	loc, err := ResolveObjectLocation(s.Bucket, key)
	if err != nil {
		return nil, err
	}
	return s.Client.Bucket(loc.Bucket).Object(loc.FullPath), nil
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}

	// Cancelling the writer's context aborts the upload without committing a partial object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := obj.NewWriter(wctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object writer: %w", err)
	}
	return nil
}

func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.object(key)
	if err != nil {
		return nil, err
	}
	rc, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return rc, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	obj, err := s.object(key)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *GCSStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	cleaned, err := cleanPrefix(prefix)
	if err != nil {
		return 0, err
	}

	bkt := s.Client.Bucket(s.Bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: cleaned})
	count := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("list prefix: %w", err)
		}
		if err := bkt.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return count, fmt.Errorf("delete %s: %w", attrs.Name, err)
		}
		count++
	}
	return count, nil
}

// Check verifies bucket access without writing.
func (s *GCSStore) Check(ctx context.Context) error {
	if _, err := s.Client.Bucket(s.Bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("bucket attrs: %w", err)
	}
	return nil
}

var _ Store = (*GCSStore)(nil)
