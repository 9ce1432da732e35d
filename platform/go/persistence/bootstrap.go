package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/zenGate-Global/palmyra-tenancy/database"
)

// BootstrapSchema creates the platform schema (if missing) and applies the
// bootstrap DDL in a single transaction. The statements are executed
// with search_path set to the platform schema, in this order:
//  1. platform/tenants.sql
//  2. platform/memberships.sql
//  3. platform/role_assignments.sql
//  4. platform/media_assets.sql
//
// SQL is embedded at build time so binaries stay self-contained. The helper is
// idempotent and intended for CLI bootstrap and tests.
func BootstrapSchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if pool == nil {
		return fmt.Errorf("bootstrap schema: pool is required")
	}
	schema, err := normalizeIdentifier(schema)
	if err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}

	var statements []string
	statements = append(statements, splitStatements(sqlassets.TenantsSQL)...)
	statements = append(statements, splitStatements(sqlassets.MembershipsSQL)...)
	statements = append(statements, splitStatements(sqlassets.RoleAssignmentsSQL)...)
	statements = append(statements, splitStatements(sqlassets.MediaAssetsSQL)...)

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, schema); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply ddl: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// splitStatements breaks a DDL file on semicolons. The embedded files carry no
// function bodies or string literals containing ';'.
func splitStatements(sql string) []string {
	raw := strings.Split(sql, ";")
	out := make([]string, 0, len(raw))
	for _, stmt := range raw {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
