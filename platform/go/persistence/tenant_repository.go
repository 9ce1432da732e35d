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

// TenantRecord represents a tenant row plus its mapped domains.
type TenantRecord struct {
	TenantID    uuid.UUID `db:"tenant_id"`
	Slug        string    `db:"slug"`
	DisplayName *string   `db:"display_name"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	Domains     []string  `db:"-"`
}

// TenantStore provides access to the tenants and tenant_domains tables.
type TenantStore struct {
	pool    *pgxpool.Pool
	tenants string
	domains string
}

// NewTenantStore creates a store; assumes BootstrapSchema already created the tables.
func NewTenantStore(pool *pgxpool.Pool, schema string) (*TenantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	tenants, err := tableRef(schema, "tenants")
	if err != nil {
		return nil, err
	}
	domains, err := tableRef(schema, "tenant_domains")
	if err != nil {
		return nil, err
	}
	return &TenantStore{pool: pool, tenants: tenants, domains: domains}, nil
}

const tenantColumns = `tenant_id, slug, display_name, status, created_at, updated_at`

// Create inserts a tenant.
func (s *TenantStore) Create(ctx context.Context, rec TenantRecord) (TenantRecord, error) {
	if rec.TenantID == uuid.Nil {
		return TenantRecord{}, errors.New("tenant id is required")
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (tenant_id, slug, display_name, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        RETURNING %s
    `, s.tenants, tenantColumns)

	out, err := scanTenantRecord(s.pool.QueryRow(ctx, query, rec.TenantID, rec.Slug, rec.DisplayName, rec.Status, rec.CreatedAt))
	if err != nil {
		return TenantRecord{}, mapWriteError(err)
	}
	return out, nil
}

// Update overwrites display name and status.
func (s *TenantStore) Update(ctx context.Context, rec TenantRecord) (TenantRecord, error) {
	query := fmt.Sprintf(`
        UPDATE %s SET display_name = $2, status = $3, updated_at = now()
        WHERE tenant_id = $1
        RETURNING %s
    `, s.tenants, tenantColumns)

	out, err := scanTenantRecord(s.pool.QueryRow(ctx, query, rec.TenantID, rec.DisplayName, rec.Status))
	if err != nil {
		return TenantRecord{}, err
	}
	return s.withDomains(ctx, out)
}

// Get fetches a tenant with its domains.
func (s *TenantStore) Get(ctx context.Context, id uuid.UUID) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1`, tenantColumns, s.tenants)
	rec, err := scanTenantRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return TenantRecord{}, err
	}
	return s.withDomains(ctx, rec)
}

// GetBySlug returns the tenant by slug.
func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE slug = $1`, tenantColumns, s.tenants)
	rec, err := scanTenantRecord(s.pool.QueryRow(ctx, query, slug))
	if err != nil {
		return TenantRecord{}, err
	}
	return s.withDomains(ctx, rec)
}

// GetByDomain returns the tenant mapped to the given (already normalised) domain.
func (s *TenantStore) GetByDomain(ctx context.Context, domain string) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT t.tenant_id, t.slug, t.display_name, t.status, t.created_at, t.updated_at
        FROM %s t JOIN %s d ON d.tenant_id = t.tenant_id
        WHERE d.domain = $1`, s.tenants, s.domains)
	rec, err := scanTenantRecord(s.pool.QueryRow(ctx, query, domain))
	if err != nil {
		return TenantRecord{}, err
	}
	return s.withDomains(ctx, rec)
}

// List returns paginated tenants with optional status filter.
func (s *TenantStore) List(ctx context.Context, status *string, limit, offset int) ([]TenantRecord, int, error) {
	where := ""
	args := []any{}
	if status != nil {
		where = "WHERE status = $1"
		args = append(args, *status)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", s.tenants, where)
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s
        ORDER BY created_at ASC, tenant_id ASC
        LIMIT %d OFFSET %d`, tenantColumns, s.tenants, where, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []TenantRecord
	for rows.Next() {
		rec, err := scanTenantRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range records {
		if records[i], err = s.withDomains(ctx, records[i]); err != nil {
			return nil, 0, err
		}
	}
	return records, total, nil
}

// AddDomain maps domain to the tenant. Returns ErrConflict when any tenant already owns it.
func (s *TenantStore) AddDomain(ctx context.Context, id uuid.UUID, domain string) error {
	query := fmt.Sprintf(`INSERT INTO %s (domain, tenant_id) VALUES ($1, $2)`, s.domains)
	if _, err := s.pool.Exec(ctx, query, domain, id); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// RemoveDomain unmaps domain from the tenant.
func (s *TenantStore) RemoveDomain(ctx context.Context, id uuid.UUID, domain string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE domain = $1 AND tenant_id = $2`, s.domains)
	tag, err := s.pool.Exec(ctx, query, domain, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TenantStore) withDomains(ctx context.Context, rec TenantRecord) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT domain FROM %s WHERE tenant_id = $1 ORDER BY domain`, s.domains)
	rows, err := s.pool.Query(ctx, query, rec.TenantID)
	if err != nil {
		return TenantRecord{}, err
	}
	domains, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return TenantRecord{}, err
	}
	rec.Domains = domains
	return rec, nil
}

func scanTenantRecord(row pgx.Row) (TenantRecord, error) {
	var rec TenantRecord
	if err := row.Scan(&rec.TenantID, &rec.Slug, &rec.DisplayName, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrNotFound
		}
		return TenantRecord{}, err
	}
	return rec, nil
}
