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

// MembershipRecord is a row of the memberships table.
type MembershipRecord struct {
	MembershipID uuid.UUID `db:"membership_id"`
	TenantID     uuid.UUID `db:"tenant_id"`
	UserID       string    `db:"user_id"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// MembershipStore provides access to the memberships table.
type MembershipStore struct {
	pool  *pgxpool.Pool
	table string
}

func NewMembershipStore(pool *pgxpool.Pool, schema string) (*MembershipStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	table, err := tableRef(schema, "memberships")
	if err != nil {
		return nil, err
	}
	return &MembershipStore{pool: pool, table: table}, nil
}

const membershipColumns = `membership_id, tenant_id, user_id, status, created_at, updated_at`

func (s *MembershipStore) Create(ctx context.Context, rec MembershipRecord) (MembershipRecord, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (membership_id, tenant_id, user_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        RETURNING %s
    `, s.table, membershipColumns)

	out, err := scanMembershipRecord(s.pool.QueryRow(ctx, query, rec.MembershipID, rec.TenantID, rec.UserID, rec.Status, rec.CreatedAt))
	if err != nil {
		return MembershipRecord{}, mapWriteError(err)
	}
	return out, nil
}

// Get returns a membership scoped to its tenant.
func (s *MembershipStore) Get(ctx context.Context, tenantID, id uuid.UUID) (MembershipRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1 AND membership_id = $2`, membershipColumns, s.table)
	return scanMembershipRecord(s.pool.QueryRow(ctx, query, tenantID, id))
}

func (s *MembershipStore) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status string) (MembershipRecord, error) {
	query := fmt.Sprintf(`
        UPDATE %s SET status = $3, updated_at = now()
        WHERE tenant_id = $1 AND membership_id = $2
        RETURNING %s
    `, s.table, membershipColumns)
	rec, err := scanMembershipRecord(s.pool.QueryRow(ctx, query, tenantID, id, status))
	if err != nil {
		return MembershipRecord{}, mapWriteError(err)
	}
	return rec, nil
}

// ListForTenant returns all memberships of a tenant, oldest first.
func (s *MembershipStore) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]MembershipRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1 ORDER BY created_at ASC, membership_id ASC`, membershipColumns, s.table)
	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MembershipRecord
	for rows.Next() {
		rec, err := scanMembershipRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FindActive returns the earliest-created active membership of user in tenant.
func (s *MembershipStore) FindActive(ctx context.Context, tenantID uuid.UUID, userID string) (MembershipRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
        WHERE tenant_id = $1 AND user_id = $2 AND status = 'active'
        ORDER BY created_at ASC, membership_id ASC
        LIMIT 1`, membershipColumns, s.table)
	return scanMembershipRecord(s.pool.QueryRow(ctx, query, tenantID, userID))
}

func scanMembershipRecord(row pgx.Row) (MembershipRecord, error) {
	var rec MembershipRecord
	if err := row.Scan(&rec.MembershipID, &rec.TenantID, &rec.UserID, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MembershipRecord{}, ErrNotFound
		}
		return MembershipRecord{}, err
	}
	return rec, nil
}
