package cli

import (
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/vulx/internal/model"
	"github.com/mmr-tortoise/vulx/internal/orchestrator"
)

// NewCleanCommand creates the "clean" cobra command.
//
// Flags:
//
//	--force, -f: ignore removal errors
func NewCleanCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the workspace and the dependency directory",
		Long: `Delete the hidden workspace directory, then node_modules.

Each directory is removed on its own. Without --force the first removal
error stops the command; directories already removed stay removed.

Examples:
  vulx clean
  vulx clean --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, model.VerbClean, orchestrator.DispatchOptions{Force: force})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Ignore removal errors")

	return cmd
}
