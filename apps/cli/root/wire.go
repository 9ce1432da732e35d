package root

import (
	"github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/auth"
	"github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/bootstrap"
	"github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/clienv"
	membershipcmd "github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/membership"
	rolecmd "github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/role"
	tenantcmd "github.com/zenGate-Global/palmyra-tenancy/apps/cli/cmd/tenant"
)

func init() {
	clienv.BindPersistentFlags(Root())

	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(tenantcmd.Command())
	Root().AddCommand(membershipcmd.Command())
	Root().AddCommand(rolecmd.Command())
}
