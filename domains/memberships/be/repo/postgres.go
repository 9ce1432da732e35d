package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/persistence"
)

// PostgresRepository implements the membership repository using the shared persistence layer.
type PostgresRepository struct {
	store *persistence.MembershipStore
}

// NewPostgresRepository constructs a repository backed by MembershipStore.
func NewPostgresRepository(store *persistence.MembershipStore) *PostgresRepository {
	if store == nil {
		panic("membership store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Create(ctx context.Context, m service.Membership) (service.Membership, error) {
	rec, err := r.store.Create(ctx, persistence.MembershipRecord{
		MembershipID: m.ID,
		TenantID:     m.TenantID,
		UserID:       m.UserID,
		Status:       string(m.Status),
		CreatedAt:    m.CreatedAt,
	})
	switch {
	case errors.Is(err, persistence.ErrMissingParent):
		return service.Membership{}, service.ErrTenantNotFound
	case errors.Is(err, persistence.ErrConflict):
		return service.Membership{}, service.ErrAlreadyMember
	case err != nil:
		return service.Membership{}, err
	}
	return toServiceMembership(rec)
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (service.Membership, error) {
	rec, err := r.store.Get(ctx, tenantID, id)
	if err != nil {
		return service.Membership{}, mapNotFound(err)
	}
	return toServiceMembership(rec)
}

// SetStatus stamps updated_at in the database; at is ignored.
func (r *PostgresRepository) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status service.Status, at time.Time) (service.Membership, error) {
	rec, err := r.store.SetStatus(ctx, tenantID, id, string(status))
	if errors.Is(err, persistence.ErrConflict) {
		return service.Membership{}, service.ErrAlreadyMember
	}
	if err != nil {
		return service.Membership{}, mapNotFound(err)
	}
	return toServiceMembership(rec)
}

func (r *PostgresRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]service.Membership, error) {
	rows, err := r.store.ListForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]service.Membership, 0, len(rows))
	for _, rec := range rows {
		m, err := toServiceMembership(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *PostgresRepository) FindActive(ctx context.Context, tenantID uuid.UUID, userID string) (service.Membership, error) {
	rec, err := r.store.FindActive(ctx, tenantID, userID)
	if err != nil {
		return service.Membership{}, mapNotFound(err)
	}
	return toServiceMembership(rec)
}

func toServiceMembership(rec persistence.MembershipRecord) (service.Membership, error) {
	status, err := service.ParseStatus(rec.Status)
	if err != nil {
		return service.Membership{}, err
	}
	return service.Membership{
		ID:        rec.MembershipID,
		TenantID:  rec.TenantID,
		UserID:    rec.UserID,
		Status:    status,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
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
