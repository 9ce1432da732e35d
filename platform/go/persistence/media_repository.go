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

// MediaRecord is a row of the media_assets table. TenantID nil means a central asset.
type MediaRecord struct {
	MediaID     uuid.UUID  `db:"media_id"`
	TenantID    *uuid.UUID `db:"tenant_id"`
	ModelType   string     `db:"model_type"`
	ModelID     string     `db:"model_id"`
	FileName    string     `db:"file_name"`
	ContentType string     `db:"content_type"`
	SizeBytes   int64      `db:"size_bytes"`
	ObjectKey   string     `db:"object_key"`
	CreatedBy   string     `db:"created_by"`
	CreatedAt   time.Time  `db:"created_at"`
}

// MediaStore provides access to the media_assets table.
type MediaStore struct {
	pool  *pgxpool.Pool
	table string
}

func NewMediaStore(pool *pgxpool.Pool, schema string) (*MediaStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	table, err := tableRef(schema, "media_assets")
	if err != nil {
		return nil, err
	}
	return &MediaStore{pool: pool, table: table}, nil
}

const mediaColumns = `media_id, tenant_id, model_type, model_id, file_name, content_type, size_bytes, object_key, created_by, created_at`

func (s *MediaStore) Create(ctx context.Context, rec MediaRecord) (MediaRecord, error) {
	query := fmt.Sprintf(`
        INSERT INTO %s (%s)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING %s
    `, s.table, mediaColumns, mediaColumns)

	out, err := scanMediaRecord(s.pool.QueryRow(ctx, query,
		rec.MediaID, rec.TenantID, rec.ModelType, rec.ModelID, rec.FileName,
		rec.ContentType, rec.SizeBytes, rec.ObjectKey, rec.CreatedBy, rec.CreatedAt,
	))
	if err != nil {
		return MediaRecord{}, mapWriteError(err)
	}
	return out, nil
}

func (s *MediaStore) Get(ctx context.Context, id uuid.UUID) (MediaRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE media_id = $1`, mediaColumns, s.table)
	return scanMediaRecord(s.pool.QueryRow(ctx, query, id))
}

func (s *MediaStore) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE media_id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteForTenant removes every record of the tenant and returns how many were removed.
func (s *MediaStore) DeleteForTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, tenantID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanMediaRecord(row pgx.Row) (MediaRecord, error) {
	var rec MediaRecord
	err := row.Scan(&rec.MediaID, &rec.TenantID, &rec.ModelType, &rec.ModelID, &rec.FileName,
		&rec.ContentType, &rec.SizeBytes, &rec.ObjectKey, &rec.CreatedBy, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MediaRecord{}, ErrNotFound
		}
		return MediaRecord{}, err
	}
	return rec, nil
}
