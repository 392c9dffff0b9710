package cmds

import (
	"github.com/go-go-golems/infravoice/cmd/infravoice/cmds/dev"
	"github.com/spf13/cobra"
)

func AddCommands(root *cobra.Command) error {
	root.AddCommand(dev.NewCmd())

	root.AddCommand(newLoginCmd())
	root.AddCommand(newSignupCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newRefreshCmd())

	root.AddCommand(newTranscribeCmd())
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newEstimateCmd())

	deployments, err := newDeploymentsCmd()
	if err != nil {
		return err
	}
	root.AddCommand(deployments)
	root.AddCommand(newDashboardCmd())
	root.AddCommand(newWizardCmd())
	return nil
}
