package repo

import (
	"context"
	"errors"

	"github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/persistence"
)

// PostgresRepository implements the role repository using the shared persistence layer.
type PostgresRepository struct {
	store *persistence.RoleStore
}

// NewPostgresRepository constructs a repository backed by RoleStore.
func NewPostgresRepository(store *persistence.RoleStore) *PostgresRepository {
	if store == nil {
		panic("role store is required")
	}
	return &PostgresRepository{store: store}
}

func (r *PostgresRepository) Assign(ctx context.Context, a service.Assignment) (service.Assignment, error) {
	rec, err := r.store.Assign(ctx, persistence.RoleAssignmentRecord{
		AssignmentID: a.ID,
		UserID:       a.UserID,
		Role:         a.Role,
		ScopeID:      toColumn(a.Scope),
		CreatedAt:    a.CreatedAt,
	})
	if errors.Is(err, persistence.ErrConflict) {
		return service.Assignment{}, service.ErrAlreadyAssigned
	}
	if err != nil {
		return service.Assignment{}, err
	}

	var scope *permission.ScopeID
	if rec.ScopeID != nil {
		scope = permission.ScopeID(*rec.ScopeID).Ptr()
	}
	return service.Assignment{
		ID:        rec.AssignmentID,
		UserID:    rec.UserID,
		Role:      rec.Role,
		Scope:     scope,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, userID, role string, scope *permission.ScopeID) error {
	err := r.store.Revoke(ctx, userID, role, toColumn(scope))
	if errors.Is(err, persistence.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

func (r *PostgresRepository) Has(ctx context.Context, userID, role string, scope *permission.ScopeID) (bool, error) {
	return r.store.Has(ctx, userID, role, toColumn(scope))
}

func (r *PostgresRepository) RolesOf(ctx context.Context, userID string, scope *permission.ScopeID) ([]string, error) {
	return r.store.RolesOf(ctx, userID, toColumn(scope))
}

func toColumn(scope *permission.ScopeID) *string {
	if scope == nil {
		return nil
	}
	s := string(*scope)
	return &s
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
