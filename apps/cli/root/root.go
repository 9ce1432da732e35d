package root

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/requesttrace"
)

var rootCmd = &cobra.Command{
	Use:           "palmyra",
	Short:         "Palmyra tenancy admin CLI",
	Long:          "Operator commands for the tenancy schema, tenants and their domains, memberships, role grants and dev tokens.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// Everything the CLI writes is attributed to the system actor.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SetContext(requesttrace.IntoContext(cmd.Context(), requesttrace.System("")))
	},
}

// Execute runs the CLI; ctx is cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
