package role

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/clienv"
	rolesrepo "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/repo"
	rolesservice "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	tenantsrepo "github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
)

func memoryServices() *clienv.Services {
	scopes := permission.NewScopes()
	return &clienv.Services{
		Tenants: tenantsservice.New(tenantsrepo.NewMemoryRepository()),
		Roles:   rolesservice.New(rolesrepo.NewMemoryRepository(), scopes),
		Scopes:  scopes,
	}
}

func TestRunScopedAssignsInTenantScope(t *testing.T) {
	ctx := context.Background()
	svcs := memoryServices()
	acme, err := svcs.Tenants.Create(ctx, tenantsservice.CreateInput{Slug: "acme"})
	require.NoError(t, err)

	err = runScoped(ctx, svcs, "acme", func(ctx context.Context, svcs *clienv.Services, label string) error {
		require.Equal(t, "tenant acme", label)
		_, err := svcs.Roles.Assign(ctx, "user-1", "editor")
		return err
	})
	require.NoError(t, err)

	inTenant, err := svcs.Roles.HasRole(ctx, "user-1", "editor", permission.ScopeID(acme.ID.String()).Ptr())
	require.NoError(t, err)
	require.True(t, inTenant)

	global, err := svcs.Roles.HasRole(ctx, "user-1", "editor", nil)
	require.NoError(t, err)
	require.False(t, global)

	require.Nil(t, svcs.Scopes.Explicit())
}

func TestRunScopedDefaultsToGlobal(t *testing.T) {
	ctx := context.Background()
	svcs := memoryServices()

	err := runScoped(ctx, svcs, " ", func(ctx context.Context, svcs *clienv.Services, label string) error {
		require.Equal(t, "global scope", label)
		_, err := svcs.Roles.Assign(ctx, "user-1", "superadmin")
		return err
	})
	require.NoError(t, err)

	ok, err := svcs.Roles.HasRole(ctx, "user-1", "superadmin", nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunScopedUnknownTenant(t *testing.T) {
	svcs := memoryServices()
	called := false

	err := runScoped(context.Background(), svcs, "missing", func(context.Context, *clienv.Services, string) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, tenantsservice.ErrNotFound)
	require.False(t, called)
}

func TestDescribeFlattensValidation(t *testing.T) {
	svcs := memoryServices()
	_, err := svcs.Roles.AssignIn(context.Background(), "", "Bad Role!", nil)
	require.Error(t, err)
	require.Contains(t, describe(err).Error(), "invalid input:")
}
