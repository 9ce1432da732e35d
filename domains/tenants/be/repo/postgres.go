package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/persistence"
)

// PostgresRepository implements the tenant repository using the shared persistence layer.
type PostgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository constructs a repository backed by TenantStore.
func NewPostgresRepository(store *persistence.TenantStore) *PostgresRepository {
	if store == nil {
		panic("tenant store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) List(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	var statusStr *string
	if opts.Status != nil {
		s := string(*opts.Status)
		statusStr = &s
	}

	rows, total, err := r.store.List(ctx, statusStr, size, offset)
	if err != nil {
		return service.ListResult{}, err
	}

	tenants := make([]service.Tenant, 0, len(rows))
	for _, rec := range rows {
		t, err := toServiceTenant(rec)
		if err != nil {
			return service.ListResult{}, err
		}
		tenants = append(tenants, t)
	}

	totalPages := (total + size - 1) / size
	return service.ListResult{Tenants: tenants, Page: page, PageSize: size, TotalItems: total, TotalPages: totalPages}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	out, err := r.store.Create(ctx, toRecord(t))
	if errors.Is(err, persistence.ErrConflict) {
		return service.Tenant{}, service.ErrConflictSlug
	}
	if err != nil {
		return service.Tenant{}, err
	}
	return toServiceTenant(out)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return toServiceTenant(rec)
}

func (r *PostgresRepository) Update(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	out, err := r.store.Update(ctx, toRecord(t))
	if err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return toServiceTenant(out)
}

func (r *PostgresRepository) FindBySlug(ctx context.Context, slug string) (service.Tenant, error) {
	rec, err := r.store.GetBySlug(ctx, slug)
	if err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return toServiceTenant(rec)
}

func (r *PostgresRepository) FindByDomain(ctx context.Context, domain string) (service.Tenant, error) {
	rec, err := r.store.GetByDomain(ctx, domain)
	if err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return toServiceTenant(rec)
}

func (r *PostgresRepository) AddDomain(ctx context.Context, id uuid.UUID, domain string) error {
	err := r.store.AddDomain(ctx, id, domain)
	if errors.Is(err, persistence.ErrConflict) {
		return service.ErrConflictDomain
	}
	return err
}

func (r *PostgresRepository) RemoveDomain(ctx context.Context, id uuid.UUID, domain string) error {
	err := r.store.RemoveDomain(ctx, id, domain)
	if errors.Is(err, persistence.ErrNotFound) {
		return service.ErrDomainNotFound
	}
	return err
}

func toRecord(t service.Tenant) persistence.TenantRecord {
	return persistence.TenantRecord{
		TenantID:    t.ID,
		Slug:        t.Slug,
		DisplayName: t.DisplayName,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toServiceTenant(rec persistence.TenantRecord) (service.Tenant, error) {
	status, err := service.ParseStatus(rec.Status)
	if err != nil {
		return service.Tenant{}, err
	}
	return service.Tenant{
		ID:          rec.TenantID,
		Slug:        rec.Slug,
		DisplayName: rec.DisplayName,
		Status:      status,
		Domains:     rec.Domains,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
