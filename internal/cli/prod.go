package cli

import (
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/vulx/internal/model"
	"github.com/mmr-tortoise/vulx/internal/orchestrator"
)

// NewProdCommand creates the "prod" cobra command.
func NewProdCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prod",
		Short: "Build for production",
		Long: `Provision the workspace and run a single optimized bundler build into
the output directory (_dist by default).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, model.VerbProd, orchestrator.DispatchOptions{})
		},
	}
}
