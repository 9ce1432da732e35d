package auth

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/auth/devtoken"
)

func devTokenCommand() *cobra.Command {
	var params devtoken.Params
	var asHeader bool

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Generate an unsigned Firebase-compatible JWT for dev/local use",
		Long:  "Generate an unsigned token for AUTH_PROVIDER=dev. The tenant is taken from the request host, not the token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := devtoken.BuildUnsignedFirebaseToken(params, time.Now().UTC())
			if err != nil {
				return err
			}

			if asHeader {
				fmt.Fprintf(cmd.OutOrStdout(), "Authorization: Bearer %s\n", token)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.ProjectID, "project-id", "", "Firebase project ID (iss/aud)")
	cmd.Flags().StringVar(&params.UserID, "user-id", "", "user_id/sub/uid claim")
	cmd.Flags().StringVar(&params.Email, "email", "", "email claim")

	cmd.Flags().StringVar(&params.Name, "name", "", "display name")
	cmd.Flags().BoolVar(&params.EmailVerified, "email-verified", true, "email_verified claim")
	cmd.Flags().StringVar(&params.UserType, "user-type", "user", "userType claim: user or superadmin")
	cmd.Flags().StringVar(&params.FirebaseSignInProvider, "sign-in-provider", "password", "firebase.sign_in_provider claim")
	cmd.Flags().DurationVar(&params.ExpiresIn, "expires-in", time.Hour, "token lifetime (e.g. 30m, 2h)")
	cmd.Flags().StringVar(&params.Audience, "audience", "", "override aud; defaults to project-id")
	cmd.Flags().StringVar(&params.Issuer, "issuer", "", "override iss; defaults to securetoken URL")
	cmd.Flags().BoolVar(&asHeader, "header", false, "print a ready-to-use Authorization header")

	_ = cmd.MarkFlagRequired("project-id")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
