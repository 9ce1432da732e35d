// Package clienv holds the database settings shared by every CLI command and builds the
// services they operate on.
package clienv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	membershipsrepo "github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/repo"
	membershipsservice "github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/service"
	rolesrepo "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/repo"
	rolesservice "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	tenantsrepo "github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/persistence"
)

var (
	databaseURL string
	schema      string
	logLevel    string
)

// BindPersistentFlags registers the shared flags on the root command.
func BindPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (default $DATABASE_URL)")
	root.PersistentFlags().StringVar(&schema, "schema", EnvOr("DATABASE_SCHEMA", persistence.DefaultSchema), "Schema holding the tenancy tables")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level for diagnostics written to stderr")
}

// Schema returns the configured schema name.
func Schema() string {
	return schema
}

// Logger builds the stderr logger used by commands.
func Logger() (*zap.Logger, error) {
	return platformlogging.NewLogger(platformlogging.Config{
		Component: "cli",
		Level:     logLevel,
		Output:    os.Stderr,
		Format:    "console",
	})
}

// Pool opens a pool for the configured database.
func Pool(ctx context.Context) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("--database-url or DATABASE_URL is required")
	}
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      databaseURL,
		Schema:          schema,
		ApplicationName: "palmyra-cli",
		ConnectTimeout:  10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init pool: %w", err)
	}
	return pool, nil
}

// Services is the set of domain services commands operate on.
type Services struct {
	Pool        *pgxpool.Pool
	Tenants     *tenantsservice.Service
	Memberships *membershipsservice.Service
	Roles       *rolesservice.Service
	// Scopes is the explicit permission scope used by role commands; CLI runs have no
	// request tenant.
	Scopes *permission.Scopes
}

// Close releases the pool.
func (s *Services) Close() {
	persistence.ClosePool(s.Pool)
}

// Open connects to the database and wires the postgres-backed services.
func Open(ctx context.Context) (*Services, error) {
	pool, err := Pool(ctx)
	if err != nil {
		return nil, err
	}

	tenantStore, err := persistence.NewTenantStore(pool, schema)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init tenant store: %w", err)
	}
	membershipStore, err := persistence.NewMembershipStore(pool, schema)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init membership store: %w", err)
	}
	roleStore, err := persistence.NewRoleStore(pool, schema)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, fmt.Errorf("init role store: %w", err)
	}

	scopes := permission.NewScopes()
	return &Services{
		Pool:        pool,
		Tenants:     tenantsservice.New(tenantsrepo.NewPostgresRepository(tenantStore)),
		Memberships: membershipsservice.New(membershipsrepo.NewPostgresRepository(membershipStore)),
		Roles:       rolesservice.New(rolesrepo.NewPostgresRepository(roleStore), scopes),
		Scopes:      scopes,
	}, nil
}

// TenantLookup is the part of the tenants service ResolveTenant needs.
type TenantLookup interface {
	Get(ctx context.Context, id uuid.UUID) (tenantsservice.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (tenantsservice.Tenant, error)
}

// ResolveTenant accepts a tenant id or slug.
func ResolveTenant(ctx context.Context, tenants TenantLookup, ref string) (tenantsservice.Tenant, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return tenantsservice.Tenant{}, errors.New("tenant reference is required")
	}
	if id, err := uuid.Parse(ref); err == nil {
		return tenants.Get(ctx, id)
	}
	return tenants.GetBySlug(ctx, ref)
}

// InvalidInput flattens field validation messages into one error for the terminal.
func InvalidInput(fields map[string][]string) error {
	parts := make([]string, 0, len(fields))
	for field, msgs := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, "; ")))
	}
	sort.Strings(parts)
	return fmt.Errorf("invalid input: %s", strings.Join(parts, ", "))
}

// EnvOr returns the trimmed environment value for key, or def when unset.
func EnvOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
