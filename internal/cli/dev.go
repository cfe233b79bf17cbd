package cli

import (
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/vulx/internal/model"
	"github.com/mmr-tortoise/vulx/internal/orchestrator"
)

// NewDevCommand creates the "dev" cobra command.
func NewDevCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dev",
		Short: "Start the hot-reloading development server",
		Long: `Provision the workspace, find a free port starting at preferred_port
(3000 by default) and run the bundler in watch mode with hot module
replacement on that port.

The command runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, model.VerbDev, orchestrator.DispatchOptions{})
		},
	}
}
