package role

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/clienv"
	rolesservice "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
)

// Command groups role assignment operations.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Role assignment management",
		Long:  "Assign or revoke roles. --scope takes a tenant id or slug; omit it for a global assignment.",
	}
	cmd.AddCommand(assignCommand())
	cmd.AddCommand(revokeCommand())
	return cmd
}

type roleFlags struct {
	userID string
	role   string
	scope  string
}

func (f *roleFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.userID, "user-id", "", "principal id")
	cmd.Flags().StringVar(&f.role, "role", "", "role name")
	cmd.Flags().StringVar(&f.scope, "scope", "", "tenant id or slug; empty for global")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("role")
}

func assignCommand() *cobra.Command {
	var flags roleFlags

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a role to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cmd, flags.scope, func(ctx context.Context, svcs *clienv.Services, label string) error {
				a, err := svcs.Roles.Assign(ctx, flags.userID, flags.role)
				if errors.Is(err, rolesservice.ErrAlreadyAssigned) {
					fmt.Fprintf(cmd.OutOrStdout(), "user %s already holds %s in %s\n", flags.userID, flags.role, label)
					return nil
				}
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s granted %s in %s\n", a.UserID, a.Role, label)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func revokeCommand() *cobra.Command {
	var flags roleFlags

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a role from a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cmd, flags.scope, func(ctx context.Context, svcs *clienv.Services, label string) error {
				if err := svcs.Roles.Revoke(ctx, flags.userID, flags.role); err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s revoked %s in %s\n", flags.userID, flags.role, label)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func withScope(cmd *cobra.Command, ref string, fn func(ctx context.Context, svcs *clienv.Services, label string) error) error {
	ctx := cmd.Context()
	svcs, err := clienv.Open(ctx)
	if err != nil {
		return err
	}
	defer svcs.Close()
	return runScoped(ctx, svcs, ref, fn)
}

// runScoped runs fn with the explicit permission scope set to the referenced tenant, or
// to the global scope when ref is empty.
func runScoped(ctx context.Context, svcs *clienv.Services, ref string, fn func(ctx context.Context, svcs *clienv.Services, label string) error) error {
	var scope *permission.ScopeID
	label := "global scope"
	if strings.TrimSpace(ref) != "" {
		t, err := clienv.ResolveTenant(ctx, svcs.Tenants, ref)
		if err != nil {
			return err
		}
		scope = permission.ScopeID(t.ID.String()).Ptr()
		label = "tenant " + t.Slug
	}

	return svcs.Scopes.Run(ctx, scope, func(ctx context.Context) error {
		return fn(ctx, svcs, label)
	})
}

func describe(err error) error {
	var vErr *rolesservice.ValidationError
	if errors.As(err, &vErr) {
		return clienv.InvalidInput(vErr.Fields)
	}
	return err
}
