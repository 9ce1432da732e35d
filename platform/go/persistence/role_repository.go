package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleAssignmentRecord grants Role to UserID within ScopeID; nil ScopeID is the global scope.
type RoleAssignmentRecord struct {
	AssignmentID uuid.UUID `db:"assignment_id"`
	UserID       string    `db:"user_id"`
	Role         string    `db:"role"`
	ScopeID      *string   `db:"scope_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// RoleStore provides access to the role_assignments table.
type RoleStore struct {
	pool  *pgxpool.Pool
	table string
}

func NewRoleStore(pool *pgxpool.Pool, schema string) (*RoleStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	table, err := tableRef(schema, "role_assignments")
	if err != nil {
		return nil, err
	}
	return &RoleStore{pool: pool, table: table}, nil
}

// Assign inserts the assignment; ErrConflict when it already exists in that scope.
func (s *RoleStore) Assign(ctx context.Context, rec RoleAssignmentRecord) (RoleAssignmentRecord, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (assignment_id, user_id, role, scope_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING assignment_id, user_id, role, scope_id, created_at
    `, s.table)

	var out RoleAssignmentRecord
	err := s.pool.QueryRow(ctx, query, rec.AssignmentID, rec.UserID, rec.Role, rec.ScopeID, rec.CreatedAt).
		Scan(&out.AssignmentID, &out.UserID, &out.Role, &out.ScopeID, &out.CreatedAt)
	if err != nil {
		return RoleAssignmentRecord{}, mapWriteError(err)
	}
	return out, nil
}

// Revoke deletes the assignment in exactly the given scope.
func (s *RoleStore) Revoke(ctx context.Context, userID, role string, scopeID *string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND role = $2 AND scope_id IS NOT DISTINCT FROM $3`, s.table)
	tag, err := s.pool.Exec(ctx, query, userID, role, scopeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Has reports whether the user holds role in exactly the given scope.
func (s *RoleStore) Has(ctx context.Context, userID, role string, scopeID *string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (
        SELECT 1 FROM %s WHERE user_id = $1 AND role = $2 AND scope_id IS NOT DISTINCT FROM $3
    )`, s.table)
	var ok bool
	if err := s.pool.QueryRow(ctx, query, userID, role, scopeID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// RolesOf lists role names held by the user in exactly the given scope.
func (s *RoleStore) RolesOf(ctx context.Context, userID string, scopeID *string) ([]string, error) {
	query := fmt.Sprintf(`SELECT role FROM %s WHERE user_id = $1 AND scope_id IS NOT DISTINCT FROM $2 ORDER BY role`, s.table)
	rows, err := s.pool.Query(ctx, query, userID, scopeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
