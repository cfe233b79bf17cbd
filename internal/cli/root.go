// Package cli implements the cobra-based CLI commands for vulx.
//
// Each verb (prepare, dev, prod, serve, upgrade, clean) is defined in its
// own file within this package. This file defines the root command, which
// owns the global flags, wires the components together and prints the verb
// list for anything it does not recognize.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmr-tortoise/vulx/internal/assets"
	"github.com/mmr-tortoise/vulx/internal/config"
	"github.com/mmr-tortoise/vulx/internal/model"
	"github.com/mmr-tortoise/vulx/internal/orchestrator"
	"github.com/mmr-tortoise/vulx/internal/port"
	"github.com/mmr-tortoise/vulx/internal/runner"
	"github.com/mmr-tortoise/vulx/internal/workspace"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// rootDir is the project root. Empty means the working directory.
	rootDir string

	// verbose lowers the log level to debug.
	verbose bool

	// noColor disables colored output.
	noColor bool

	// logger is built in PersistentPreRunE from the flags above.
	logger = zap.NewNop()
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// Unlike a plain command group, the root accepts arbitrary arguments: any
// token that is not a registered verb lands in RunE, which prints the list
// of verbs and exits successfully.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vulx [command]",
		Short: "Build orchestrator for Vulmix projects",
		Long: `vulx prepares the hidden build workspace of a Vulmix project and drives
the bundler, the type-checker and the static file server for it.

  vulx prepare   provision the workspace only
  vulx dev       hot-reloading development server
  vulx prod      one-shot production build
  vulx serve     production build served locally
  vulx upgrade   install the latest preview release
  vulx clean     remove the workspace and node_modules`,

		// Errors are printed by Execute with their exit code mapping.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		Args: cobra.ArbitraryArgs,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupOutput(cmd.ErrOrStderr())
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			verb := model.VerbUnknown
			if len(args) > 0 {
				verb = model.ParseVerb(args[0])
			}
			return dispatchWithoutProject(cmd, verb)
		},
	}

	// "help" and "completion" are not verbs: they get the verb list like
	// any other unknown token. The --help flag keeps cobra's help text.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "help",
		Hidden: true,
		Args:   cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchWithoutProject(cmd, model.VerbUnknown)
		},
	})

	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Project root (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewPrepareCommand())
	rootCmd.AddCommand(NewDevCommand())
	rootCmd.AddCommand(NewProdCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewUpgradeCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// Execute runs the root command and exits the process with the code
// derived from its error.
func Execute(rootCmd *cobra.Command) {
	os.Exit(Run(rootCmd))
}

// Run executes rootCmd and returns the process exit code. CLIErrors carry
// their own code, BuildErrors propagate the child's status and everything
// else is 1.
func Run(rootCmd *cobra.Command) int {
	err := rootCmd.Execute()
	if err == nil {
		return int(model.ExitSuccess)
	}

	printError(rootCmd.ErrOrStderr(), err)
	return model.ExitCodeOf(err)
}

// dispatchWithoutProject runs verb on an orchestrator without project
// components. Only verbs that need no configuration may go through here.
func dispatchWithoutProject(cmd *cobra.Command, verb model.Verb) error {
	orch := orchestrator.New(orchestrator.Deps{Out: cmd.OutOrStdout(), Logger: logger})
	return orch.Dispatch(cmd.Context(), verb, orchestrator.DispatchOptions{})
}

// runVerb builds the components for the current project and dispatches
// verb through them.
func runVerb(cmd *cobra.Command, verb model.Verb, opts orchestrator.DispatchOptions) error {
	orch, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	return orch.Dispatch(cmd.Context(), verb, opts)
}

// newOrchestrator loads the configuration and wires the real components.
func newOrchestrator(cmd *cobra.Command) (*orchestrator.Orchestrator, error) {
	root := rootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError, "failed to determine working directory", err)
		}
		root = wd
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	paths, err := config.NewPaths(root, cfg)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid project root", err)
	}
	VerboseLog("project root: %s", paths.Root)
	VerboseLog("workspace: %s", paths.CacheDir)

	assetFS, assetSource, err := assets.Source(paths.AssetsDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid assets_dir", err)
	}
	VerboseLog("templates: %s", assetSource)

	run := runner.New(paths.Root, logger)
	run.BinDir = paths.BinDir

	prov, err := workspace.NewProvisioner(workspace.Options{
		Paths:       paths,
		DevMode:     cfg.DevMode,
		Checker:     cfg.Toolchain().Checker,
		Assets:      assetFS,
		AssetSource: assetSource,
		Runner:      run,
		Version:     Version,
		Logger:      logger,
		Progress:    newProgress(os.Stderr),
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid workspace configuration", err)
	}

	return orchestrator.New(orchestrator.Deps{
		Config:      cfg,
		Paths:       paths,
		Provisioner: prov,
		Ports:       port.NewAllocator(port.NewScanner(), cfg.PortProbeLimit),
		Runner:      run,
		Out:         cmd.OutOrStdout(),
		Logger:      logger,
		Version:     Version,
	}), nil
}

// printError writes "Error: <message>" to w, with the prefix in red.
func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprint(w, "Error: ")
	fmt.Fprintln(w, err.Error())
}
