package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/domains/media/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/persistence"
)

// PostgresRepository implements the media repository using the shared persistence layer.
type PostgresRepository struct {
	store *persistence.MediaStore
}

// NewPostgresRepository constructs a repository backed by MediaStore.
func NewPostgresRepository(store *persistence.MediaStore) *PostgresRepository {
	if store == nil {
		panic("media store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Create(ctx context.Context, a service.Asset) (service.Asset, error) {
	rec, err := r.store.Create(ctx, persistence.MediaRecord{
		MediaID:     a.ID,
		TenantID:    a.TenantID,
		ModelType:   a.ModelType,
		ModelID:     a.ModelID,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		ObjectKey:   a.ObjectKey,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
	})
	if err != nil {
		return service.Asset{}, err
	}
	return toServiceAsset(rec), nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Asset, error) {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return service.Asset{}, mapNotFound(err)
	}
	return toServiceAsset(rec), nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return mapNotFound(r.store.Delete(ctx, id))
}

func (r *PostgresRepository) DeleteForTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return r.store.DeleteForTenant(ctx, tenantID)
}

func toServiceAsset(rec persistence.MediaRecord) service.Asset {
	return service.Asset{
		ID:          rec.MediaID,
		TenantID:    rec.TenantID,
		ModelType:   rec.ModelType,
		ModelID:     rec.ModelID,
		FileName:    rec.FileName,
		ContentType: rec.ContentType,
		SizeBytes:   rec.SizeBytes,
		ObjectKey:   rec.ObjectKey,
		CreatedBy:   rec.CreatedBy,
		CreatedAt:   rec.CreatedAt,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
