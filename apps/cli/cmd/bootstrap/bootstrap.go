package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/clienv"
	rolesservice "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/access"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/persistence"
)

// Command creates the tenancy schema and optionally seeds the first superadmin.
func Command() *cobra.Command {
	var superadmin string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the tenancy schema and tables",
		Long:  "Create the tenancy schema idempotently. With --superadmin, also assign the global superadmin role to that user id.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			logger, err := clienv.Logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svcs, err := clienv.Open(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()

			if err := persistence.BootstrapSchema(ctx, svcs.Pool, clienv.Schema()); err != nil {
				return fmt.Errorf("bootstrap schema: %w", err)
			}
			logger.Info("schema ready", zap.String("schema", clienv.Schema()))
			fmt.Fprintf(cmd.OutOrStdout(), "schema %s ready\n", clienv.Schema())

			uid := strings.TrimSpace(superadmin)
			if uid == "" {
				return nil
			}

			_, err = svcs.Roles.AssignIn(ctx, uid, access.RoleSuperadmin, nil)
			switch {
			case errors.Is(err, rolesservice.ErrAlreadyAssigned):
				fmt.Fprintf(cmd.OutOrStdout(), "user %s already holds %s\n", uid, access.RoleSuperadmin)
			case err != nil:
				return fmt.Errorf("assign superadmin role: %w", err)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "user %s granted %s\n", uid, access.RoleSuperadmin)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&superadmin, "superadmin", "", "user id to receive the global superadmin role")

	return cmd
}
