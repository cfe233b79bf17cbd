package cli

import (
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/vulx/internal/model"
	"github.com/mmr-tortoise/vulx/internal/orchestrator"
)

// NewServeCommand creates the "serve" cobra command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Build for production and serve the output locally",
		Long: `Run a production build, then serve the output directory on localhost
with a static file server. Unknown paths fall back to index.html so
client-side routes work.

serve does not provision the workspace; run prepare or prod first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerb(cmd, model.VerbServe, orchestrator.DispatchOptions{})
		},
	}
}
