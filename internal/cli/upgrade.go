package cli

import (
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/vulx/internal/model"
	"github.com/mmr-tortoise/vulx/internal/orchestrator"
)

// NewUpgradeCommand creates the "upgrade" cobra command.
func NewUpgradeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Install the latest preview release of vulmix",
		Long: `Install vulmix@preview as a dev dependency with the project's package
manager. The package manager is taken from the packageManager field of
package.json, then from the lockfile present (pnpm-lock.yaml, yarn.lock),
and defaults to npm.

Set the upgrade key in vulmix.yaml to run a different command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, model.VerbUpgrade, orchestrator.DispatchOptions{})
		},
	}
}
