package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mmr-tortoise/vulx/internal/assets"
	"github.com/mmr-tortoise/vulx/internal/config"
	"github.com/mmr-tortoise/vulx/internal/model"
)

// CommandRunner runs a single external command to completion.
type CommandRunner interface {
	RunCommand(ctx context.Context, c model.Command) error
}

// Progress is notified while templates are copied. The CLI backs it with a
// terminal spinner.
type Progress interface {
	Start(message string)
	Stop()
}

// Options configures a Provisioner.
type Options struct {
	// Paths is the resolved workspace layout.
	Paths config.Paths

	// DevMode selects the .dev template variants.
	DevMode bool

	// Checker is the type-checker program and its leading arguments.
	Checker []string

	// Assets is the template source. AssetSource names it in the stamp.
	Assets      fs.FS
	AssetSource string

	// Runner executes the type-checker.
	Runner CommandRunner

	// Version is recorded in the stamp.
	Version string

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Progress is optional.
	Progress Progress
}

// Provisioner materializes the workspace for one project root.
type Provisioner struct {
	paths       config.Paths
	devMode     bool
	checker     []string
	assets      fs.FS
	assetSource string
	runner      CommandRunner
	version     string
	logger      *zap.Logger
	progress    Progress
}

// fileCopy maps one template to its workspace target.
type fileCopy struct {
	asset  string
	target string
}

// NewProvisioner validates opts and creates a Provisioner.
func NewProvisioner(opts Options) (*Provisioner, error) {
	if opts.Assets == nil {
		return nil, errors.New("workspace: no asset source")
	}
	if opts.Runner == nil {
		return nil, errors.New("workspace: no command runner")
	}
	if len(opts.Checker) == 0 {
		return nil, errors.New("workspace: no type-checker command configured")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	progress := opts.Progress
	if progress == nil {
		progress = noProgress{}
	}

	return &Provisioner{
		paths:       opts.Paths,
		devMode:     opts.DevMode,
		checker:     opts.Checker,
		assets:      opts.Assets,
		assetSource: opts.AssetSource,
		runner:      opts.Runner,
		version:     opts.Version,
		logger:      logger,
		progress:    progress,
	}, nil
}

// Provision creates the workspace directories, copies the templates, writes
// the stamp and compiles the configuration source. Every failure is a
// CLIError with ExitProvisionFailed, and no build mode may run after one.
func (p *Provisioner) Provision(ctx context.Context) error {
	p.logger.Debug("provisioning workspace",
		zap.String("root", p.paths.Root),
		zap.String("cache_dir", p.paths.CacheDir),
		zap.String("assets", p.assetSource),
		zap.Bool("dev_mode", p.devMode),
	)

	if err := p.ensureDirs(); err != nil {
		return err
	}

	files, err := p.copyTemplates()
	if err != nil {
		return err
	}

	if err := p.stamp(files); err != nil {
		return err
	}

	return p.compileConfig(ctx)
}

// ensureDirs creates every workspace directory. Existing directories are
// fine; a regular file in the way is not.
func (p *Provisioner) ensureDirs() error {
	for _, dir := range p.paths.WorkspaceDirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return model.WrapCLIError(model.ExitProvisionFailed,
				fmt.Sprintf("failed to create workspace directory %s", dir), err)
		}
	}
	return nil
}

// fileCopies lists the single-file templates in copy order.
func (p *Provisioner) fileCopies() []fileCopy {
	return []fileCopy{
		{asset: assets.MixConfig(p.devMode), target: p.paths.BundlerConfigFile},
		{asset: assets.TSConfig, target: filepath.Join(p.paths.TypesDir, "tsconfig.json")},
		{asset: assets.VueShims, target: filepath.Join(p.paths.TypesDir, "vue-shims.d.ts")},
		{asset: assets.EnvTypes, target: filepath.Join(p.paths.TypesDir, "env.d.ts")},
		{asset: assets.ConfigHelper(p.devMode), target: filepath.Join(p.paths.UtilitiesDir, "defineVulmixConfig.ts")},
	}
}

// copyTemplates copies all templates, overwriting earlier copies, and
// returns the written files relative to the cache directory.
func (p *Provisioner) copyTemplates() ([]string, error) {
	p.progress.Start("Copying Vulmix templates")
	defer p.progress.Stop()

	var written []string

	for _, c := range p.fileCopies() {
		if err := p.copyFile(c.asset, c.target); err != nil {
			return nil, err
		}
		written = append(written, c.target)
	}

	components, err := p.copyComponents()
	if err != nil {
		return nil, err
	}
	written = append(written, components...)

	rel := make([]string, 0, len(written))
	for _, w := range written {
		r, err := filepath.Rel(p.paths.CacheDir, w)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitProvisionFailed, "failed to record copied file", err)
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	sort.Strings(rel)
	return rel, nil
}

// copyComponents mirrors the runtime components tree, nested directories
// included.
func (p *Provisioner) copyComponents() ([]string, error) {
	var written []string

	err := fs.WalkDir(p.assets, assets.ComponentDir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == assets.ComponentDir {
			return nil
		}

		rel := strings.TrimPrefix(name, assets.ComponentDir+"/")
		target := filepath.Join(p.paths.ComponentsDir, filepath.FromSlash(rel))

		if d.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return model.WrapCLIError(model.ExitProvisionFailed,
					fmt.Sprintf("failed to create workspace directory %s", target), err)
			}
			return nil
		}

		if err := p.copyFile(name, target); err != nil {
			return err
		}
		written = append(written, target)
		return nil
	})
	if err != nil {
		if model.HasCode(err, model.ExitProvisionFailed) {
			return nil, err
		}
		return nil, model.WrapCLIError(model.ExitProvisionFailed,
			fmt.Sprintf("failed to read template directory %s", assets.ComponentDir), err)
	}
	return written, nil
}

// copyFile copies one template from the asset source to target.
func (p *Provisioner) copyFile(asset, target string) error {
	data, err := fs.ReadFile(p.assets, asset)
	if err != nil {
		return model.WrapCLIError(model.ExitProvisionFailed,
			fmt.Sprintf("failed to read template %s", asset), err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return model.WrapCLIError(model.ExitProvisionFailed,
			fmt.Sprintf("failed to write %s", target), err)
	}
	p.logger.Debug("copied template", zap.String("asset", asset), zap.String("target", target))
	return nil
}

// stamp replaces the provisioning stamp, noting a version change.
func (p *Provisioner) stamp(files []string) error {
	prev, err := ReadStamp(p.paths.StampFile)
	if err != nil {
		// A corrupt stamp is overwritten below.
		p.logger.Debug("ignoring unreadable stamp", zap.Error(err))
	}
	if prev != nil && prev.Version != p.version {
		p.logger.Info("workspace was provisioned by another vulx version",
			zap.String("previous", prev.Version),
			zap.String("current", p.version),
		)
	}

	s := Stamp{
		Tool:        stampTool,
		Version:     p.version,
		AssetSource: p.assetSource,
		DevMode:     p.devMode,
		Files:       files,
	}
	if err := WriteStamp(p.paths.StampFile, s); err != nil {
		return model.WrapCLIError(model.ExitProvisionFailed, "failed to record provisioning", err)
	}
	return nil
}

// CheckerCommand returns the type-checker invocation that compiles the
// configuration source into the cache directory.
func (p *Provisioner) CheckerCommand() model.Command {
	args := append([]string{}, p.checker[1:]...)
	args = append(args,
		p.paths.ConfigSource,
		"--outDir", p.paths.CacheDir,
		"--moduleResolution", "node",
		"--skipLibCheck",
	)
	return model.Command{Program: p.checker[0], Args: args}
}

// compileConfig runs the type-checker over the configuration source.
func (p *Provisioner) compileConfig(ctx context.Context) error {
	info, err := os.Stat(p.paths.ConfigSource)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewCLIError(model.ExitProvisionFailed,
				fmt.Sprintf("configuration source %s not found", p.paths.ConfigSource))
		}
		return model.WrapCLIError(model.ExitProvisionFailed,
			fmt.Sprintf("failed to access configuration source %s", p.paths.ConfigSource), err)
	}
	if info.IsDir() {
		return model.NewCLIError(model.ExitProvisionFailed,
			fmt.Sprintf("configuration source %s is a directory", p.paths.ConfigSource))
	}

	if err := p.runner.RunCommand(ctx, p.CheckerCommand()); err != nil {
		return model.WrapCLIError(model.ExitProvisionFailed,
			fmt.Sprintf("failed to compile %s", filepath.Base(p.paths.ConfigSource)), err)
	}
	return nil
}

type noProgress struct{}

func (noProgress) Start(string) {}
func (noProgress) Stop()        {}
