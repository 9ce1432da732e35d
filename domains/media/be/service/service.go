package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/media"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/requesttrace"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/storage"
)

// Errors returned by the service layer.
var (
	ErrNotFound = errors.New("media asset not found")
	ErrTooLarge = errors.New("media asset exceeds size limit")
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// sniffLen is how much of an upload is buffered for content type detection.
const sniffLen = 3072

// Asset is a stored media file. TenantID nil marks a central asset.
type Asset struct {
	ID          uuid.UUID
	TenantID    *uuid.UUID
	ModelType   string
	ModelID     string
	FileName    string
	ContentType string
	SizeBytes   int64
	ObjectKey   string
	CreatedBy   string
	CreatedAt   time.Time
}

// UploadInput describes a new asset. ModelType and ModelID are required for central assets.
// CreatedBy defaults to the request actor.
type UploadInput struct {
	TenantID    *uuid.UUID
	ModelType   string
	ModelID     string
	FileName    string
	ContentType string
	CreatedBy   string
	Body        io.Reader
}

// PurgeResult reports what PurgeTenant removed.
type PurgeResult struct {
	Objects int
	Records int
}

// Repository abstracts persistence of asset metadata.
type Repository interface {
	Create(ctx context.Context, a Asset) (Asset, error)
	Get(ctx context.Context, id uuid.UUID) (Asset, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteForTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// Service stores media files under tenant-partitioned keys.
type Service struct {
	repo    Repository
	store   storage.Store
	paths   media.PathGenerator
	logger  *zap.Logger
	maxSize int64
	now     func() time.Time
}

// New constructs a Service with required dependencies. maxSize <= 0 disables the limit.
func New(repo Repository, store storage.Store, paths media.PathGenerator, maxSize int64, logger *zap.Logger) *Service {
	if repo == nil {
		panic("media repo is required")
	}
	if store == nil {
		panic("media store is required")
	}
	if paths == nil {
		panic("media path generator is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Service{
		repo:    repo,
		store:   store,
		paths:   paths,
		logger:  logger,
		maxSize: maxSize,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Upload writes the file to storage and records it.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	fields := FieldErrors{}
	fileName := cleanFileName(in.FileName)
	if fileName == "" {
		fields["file"] = append(fields["file"], "a file name is required")
	}
	modelType := strings.TrimSpace(in.ModelType)
	modelID := strings.TrimSpace(in.ModelID)
	if in.TenantID == nil {
		if modelType == "" {
			fields["modelType"] = append(fields["modelType"], "modelType is required for central assets")
		}
		if modelID == "" {
			fields["modelId"] = append(fields["modelId"], "modelId is required for central assets")
		}
	}
	if in.Body == nil {
		fields["file"] = append(fields["file"], "file content is required")
	}
	if len(fields) > 0 {
		return Asset{}, &ValidationError{Fields: fields}
	}

	body, contentType, err := sniff(in.Body, in.ContentType)
	if err != nil {
		return Asset{}, fmt.Errorf("read upload: %w", err)
	}

	id := uuid.New()
	asset := media.Asset{ID: id.String(), ModelType: modelType, ModelID: modelID}
	if in.TenantID != nil {
		ref := in.TenantID.String()
		asset.TenantRef = &ref
	}
	key := media.ObjectKey(s.paths.BasePath(asset), fileName)

	counter := &countingReader{r: body, limit: s.maxSize}
	if err := s.store.Put(ctx, key, counter, contentType); err != nil {
		if errors.Is(err, ErrTooLarge) {
			return Asset{}, ErrTooLarge
		}
		return Asset{}, fmt.Errorf("store object: %w", err)
	}

	created, err := s.repo.Create(ctx, Asset{
		ID:          id,
		TenantID:    in.TenantID,
		ModelType:   modelType,
		ModelID:     modelID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   counter.n,
		ObjectKey:   key,
		CreatedBy:   createdBy(ctx, in.CreatedBy),
		CreatedAt:   s.now(),
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			s.logger.Warn("orphaned media object", zap.String("key", key), zap.Error(delErr))
		}
		return Asset{}, fmt.Errorf("record asset: %w", err)
	}
	return created, nil
}

// Get returns the asset when it belongs to tenantID. Assets of other tenants, and central
// assets, report ErrNotFound.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (Asset, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Asset{}, err
	}
	if a.TenantID == nil || *a.TenantID != tenantID {
		return Asset{}, ErrNotFound
	}
	return a, nil
}

// Open returns the asset and its content when it belongs to tenantID.
func (s *Service) Open(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (Asset, io.ReadCloser, error) {
	a, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return Asset{}, nil, err
	}
	return s.open(ctx, a)
}

// OpenAny returns any asset regardless of tenant; reserved for superadmin routes.
func (s *Service) OpenAny(ctx context.Context, id uuid.UUID) (Asset, io.ReadCloser, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Asset{}, nil, err
	}
	return s.open(ctx, a)
}

func (s *Service) open(ctx context.Context, a Asset) (Asset, io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, a.ObjectKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("media record without object", zap.String("mediaId", a.ID.String()), zap.String("key", a.ObjectKey))
		return Asset{}, nil, ErrNotFound
	}
	if err != nil {
		return Asset{}, nil, fmt.Errorf("open object: %w", err)
	}
	return a, rc, nil
}

// Delete removes an asset of tenantID.
func (s *Service) Delete(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) error {
	a, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, a.ObjectKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete object: %w", err)
	}
	return s.repo.Delete(ctx, a.ID)
}

// PurgeTenant deletes every object under the tenant prefix and then the tenant's records.
func (s *Service) PurgeTenant(ctx context.Context, tenantID uuid.UUID) (PurgeResult, error) {
	if tenantID == uuid.Nil {
		return PurgeResult{}, &ValidationError{Fields: FieldErrors{"tenantId": {"tenantId is required"}}}
	}

	prefix := media.TenantPrefix(tenantID.String())
	objects, err := s.store.DeletePrefix(ctx, prefix)
	if err != nil {
		return PurgeResult{Objects: objects}, fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	records, err := s.repo.DeleteForTenant(ctx, tenantID)
	if err != nil {
		return PurgeResult{Objects: objects}, fmt.Errorf("delete records: %w", err)
	}

	s.logger.Info("tenant media purged",
		zap.String("tenantId", tenantID.String()),
		zap.Int("objects", objects),
		zap.Int("records", records),
	)
	return PurgeResult{Objects: objects, Records: records}, nil
}

func cleanFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// sniff fills in a missing or generic content type from the leading bytes.
func sniff(r io.Reader, declared string) (io.Reader, string, error) {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return r, declared, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]
	return io.MultiReader(bytes.NewReader(head), r), mimetype.Detect(head).String(), nil
}

type countingReader struct {
	r     io.Reader
	n     int64
	limit int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		return n, ErrTooLarge
	}
	return n, err
}

func createdBy(ctx context.Context, explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	return requesttrace.FromContextOrAnonymous(ctx).ActorID()
}
