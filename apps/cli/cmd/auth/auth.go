package auth

import "github.com/spf13/cobra"

// Command groups identity utilities.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Identity utilities (dev tokens, principal types)",
	}
	cmd.AddCommand(devTokenCommand())
	cmd.AddCommand(setTypeCommand())
	return cmd
}
