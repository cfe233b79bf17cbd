package cli

import (
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/vulx/internal/model"
	"github.com/mmr-tortoise/vulx/internal/orchestrator"
)

// NewPrepareCommand creates the "prepare" cobra command.
func NewPrepareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Provision the build workspace",
		Long: `Create the hidden workspace directory, copy the current package templates
into it and compile vulmix.config.ts with the type-checker.

Running prepare again is always safe: templates are re-copied and the
configuration is recompiled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, model.VerbPrepare, orchestrator.DispatchOptions{})
		},
	}
}
