package auth

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/gcp"
)

func setTypeCommand() *cobra.Command {
	var uid string
	var principalType string

	cmd := &cobra.Command{
		Use:   "set-type",
		Short: "Set the principal type custom claim on a Firebase user",
		Long:  "Set the userType custom claim. Superadmin bypass of tenant membership also requires the superadmin role.",
		RunE: func(cmd *cobra.Command, args []string) error {
			principalType = strings.ToLower(strings.TrimSpace(principalType))
			if err := validatePrincipalType(principalType); err != nil {
				return err
			}

			ctx := cmd.Context()
			_, client, err := gcp.InitFirebaseAuth(ctx)
			if err != nil {
				return err
			}
			if err := gcp.SetPrincipalType(ctx, client, uid, principalType); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %s type set to %s\n", uid, principalType)
			return nil
		},
	}

	cmd.Flags().StringVar(&uid, "uid", "", "Firebase user id")
	cmd.Flags().StringVar(&principalType, "type", platformauth.PrincipalTypeUser, "principal type: user or superadmin")
	_ = cmd.MarkFlagRequired("uid")

	return cmd
}

func validatePrincipalType(t string) error {
	switch t {
	case platformauth.PrincipalTypeUser, platformauth.PrincipalTypeSuperadmin:
		return nil
	default:
		return fmt.Errorf("unsupported principal type %q", t)
	}
}
