package membership

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/clienv"
	membershipsservice "github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/service"
)

// Command groups tenant membership operations.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "membership",
		Short: "Tenant membership management",
	}
	cmd.AddCommand(addCommand())
	cmd.AddCommand(listCommand())
	return cmd
}

func addCommand() *cobra.Command {
	var ref string
	var userID string
	var status string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user to a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svcs, err := clienv.Open(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := clienv.ResolveTenant(ctx, svcs.Tenants, ref)
			if err != nil {
				return err
			}

			m, err := svcs.Memberships.Add(ctx, t.ID, userID, membershipsservice.Status(strings.ToLower(strings.TrimSpace(status))))
			if err != nil {
				var vErr *membershipsservice.ValidationError
				if errors.As(err, &vErr) {
					return clienv.InvalidInput(vErr.Fields)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "membership %s: user %s in tenant %s (%s)\n", m.ID, m.UserID, t.Slug, m.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "tenant", "", "tenant id or slug")
	cmd.Flags().StringVar(&userID, "user-id", "", "principal id")
	cmd.Flags().StringVar(&status, "status", string(membershipsservice.StatusActive), "membership status: active, invited or suspended")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func listCommand() *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the memberships of a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svcs, err := clienv.Open(ctx)
			if err != nil {
				return err
			}
			defer svcs.Close()

			t, err := clienv.ResolveTenant(ctx, svcs.Tenants, ref)
			if err != nil {
				return err
			}
			items, err := svcs.Memberships.ListForTenant(ctx, t.ID)
			if err != nil {
				return err
			}
			for _, m := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.ID, m.UserID, m.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "tenant", "", "tenant id or slug")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
