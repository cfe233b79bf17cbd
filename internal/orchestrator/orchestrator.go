// Package orchestrator maps each CLI verb to its fixed sequence of
// component invocations: provisioning, port allocation, command composition
// and process execution.
//
// The Orchestrator holds no state between calls. Every dependency is
// injected through Deps, which is how the CLI wires the real components and
// how tests substitute fakes for the filesystem-, network- and
// process-facing ones.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/mmr-tortoise/vulx/internal/command"
	"github.com/mmr-tortoise/vulx/internal/config"
	"github.com/mmr-tortoise/vulx/internal/manifest"
	"github.com/mmr-tortoise/vulx/internal/model"
)

// Provisioner prepares the workspace.
type Provisioner interface {
	Provision(ctx context.Context) error
}

// PortAllocator finds a free port at or above preferred.
type PortAllocator interface {
	Allocate(ctx context.Context, preferred int) (model.PortLease, error)
}

// Runner executes external commands in the foreground.
type Runner interface {
	Run(ctx context.Context, cc model.ComposedCommand) error
	RunCommand(ctx context.Context, c model.Command) error
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Config      *config.Config
	Paths       config.Paths
	Provisioner Provisioner
	Ports       PortAllocator
	Runner      Runner

	// Out receives the banner and usage text. Defaults to os.Stdout.
	Out io.Writer

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Version is shown in the banner.
	Version string

	// RemoveAll deletes a directory tree for clean. Defaults to os.RemoveAll.
	RemoveAll func(path string) error
}

// DispatchOptions carries verb-specific flags.
type DispatchOptions struct {
	// Force suppresses removal errors in clean.
	Force bool
}

// Orchestrator runs verbs.
type Orchestrator struct {
	cfg         *config.Config
	paths       config.Paths
	provisioner Provisioner
	ports       PortAllocator
	runner      Runner
	out         io.Writer
	logger      *zap.Logger
	version     string
	removeAll   func(string) error
}

// New creates an Orchestrator from d.
func New(d Deps) *Orchestrator {
	out := d.Out
	if out == nil {
		out = os.Stdout
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	removeAll := d.RemoveAll
	if removeAll == nil {
		removeAll = os.RemoveAll
	}
	return &Orchestrator{
		cfg:         d.Config,
		paths:       d.Paths,
		provisioner: d.Provisioner,
		ports:       d.Ports,
		runner:      d.Runner,
		out:         out,
		logger:      logger,
		version:     d.Version,
		removeAll:   removeAll,
	}
}

// Dispatch runs verb. An unrecognized verb prints the usage line and
// returns nil.
func (o *Orchestrator) Dispatch(ctx context.Context, verb model.Verb, opts DispatchOptions) error {
	o.logger.Debug("dispatch", zap.String("verb", verb.String()), zap.Bool("force", opts.Force))

	switch verb {
	case model.VerbPrepare:
		return o.Prepare(ctx)
	case model.VerbDev:
		return o.Dev(ctx)
	case model.VerbProd:
		return o.Prod(ctx)
	case model.VerbServe:
		return o.Serve(ctx)
	case model.VerbUpgrade:
		return o.Upgrade(ctx)
	case model.VerbClean:
		return o.Clean(ctx, opts.Force)
	default:
		o.PrintUsage()
		return nil
	}
}

// PrintUsage writes the list of recognized verbs.
func (o *Orchestrator) PrintUsage() {
	fmt.Fprintf(o.out, "Invalid command. You can use: vulx %s\n", model.VerbList())
}

// Prepare provisions the workspace and nothing else.
func (o *Orchestrator) Prepare(ctx context.Context) error {
	if err := o.provisioner.Provision(ctx); err != nil {
		return err
	}
	o.logger.Info("workspace ready", zap.String("path", o.paths.CacheDir))
	return nil
}

// Dev provisions, allocates a port and runs the bundler in hot mode.
func (o *Orchestrator) Dev(ctx context.Context) error {
	if err := o.provisioner.Provision(ctx); err != nil {
		return err
	}

	lease, err := o.allocate(ctx)
	if err != nil {
		return err
	}
	return o.build(ctx, model.ModeHot, lease.Port)
}

// Prod provisions and runs a single production build.
func (o *Orchestrator) Prod(ctx context.Context) error {
	if err := o.provisioner.Provision(ctx); err != nil {
		return err
	}
	return o.build(ctx, model.ModeProd, 0)
}

// Serve builds for production and serves the output directory. The
// workspace is not provisioned; a prior prod or prepare run is assumed.
func (o *Orchestrator) Serve(ctx context.Context) error {
	lease, err := o.allocate(ctx)
	if err != nil {
		return err
	}
	return o.build(ctx, model.ModeServe, lease.Port)
}

// Upgrade installs the preview release of the vulmix package with the
// project's package manager, or with the configured upgrade command.
func (o *Orchestrator) Upgrade(ctx context.Context) error {
	c, err := o.upgradeCommand()
	if err != nil {
		return err
	}

	o.logger.Info("upgrading", zap.String("command", c.String()))
	return o.runner.RunCommand(ctx, c)
}

func (o *Orchestrator) upgradeCommand() (model.Command, error) {
	if tokens := o.cfg.Toolchain().Upgrade; len(tokens) > 0 {
		return model.Command{Program: tokens[0], Args: append([]string{}, tokens[1:]...)}, nil
	}

	m, err := manifest.Load(o.paths.Manifest)
	if err != nil {
		return model.Command{}, model.WrapCLIError(model.ExitConfigError, "failed to read package manifest", err)
	}
	if current, ok := m.DependencyVersion(manifest.PackageName); ok {
		o.logger.Debug("current vulmix dependency", zap.String("version", current))
	}

	pm := manifest.Detect(o.paths.Root, m)
	o.logger.Debug("detected package manager", zap.String("package_manager", string(pm)))
	return pm.AddDevCommand(manifest.UpgradeTarget()), nil
}

// Clean removes the workspace, then the dependency directory. Each removal
// is its own step: without force the first failure is returned and earlier
// removals stay done; with force every failure is logged and skipped.
func (o *Orchestrator) Clean(_ context.Context, force bool) error {
	for _, dir := range []string{o.paths.CacheDir, o.paths.DependencyDir} {
		if err := o.removeAll(dir); err != nil {
			if force {
				o.logger.Debug("ignoring removal error", zap.String("path", dir), zap.Error(err))
				continue
			}
			return model.WrapCLIError(model.ExitCleanFailed, fmt.Sprintf("failed to remove %s", dir), err)
		}
		o.logger.Debug("removed", zap.String("path", dir))
	}
	return nil
}

// allocate leases a port starting at the configured preferred port.
func (o *Orchestrator) allocate(ctx context.Context) (model.PortLease, error) {
	lease, err := o.ports.Allocate(ctx, o.cfg.PreferredPort)
	if err != nil {
		return model.PortLease{}, err
	}
	if lease.Shifted() {
		o.logger.Info("preferred port in use",
			zap.Int("preferred", lease.Preferred),
			zap.Int("port", lease.Port),
		)
	}
	return lease, nil
}

// build composes the command for mode and runs it. The banner is the last
// line printed before the tools take over the terminal.
func (o *Orchestrator) build(ctx context.Context, mode model.Mode, port int) error {
	cc, err := command.Compose(mode, port, o.cfg.Toolchain(), o.paths)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, "failed to compose build command", err)
	}

	o.logger.Debug("composed command", zap.String("mode", mode.String()), zap.String("command", cc.String()))
	o.printBanner()
	return o.runner.Run(ctx, cc)
}

// printBanner shows the tool name and version in grey.
func (o *Orchestrator) printBanner() {
	color.New(color.FgHiBlack).Fprintf(o.out, "Vulmix %s\n", o.version)
}
