package config

import (
	"fmt"
	"path/filepath"
)

// Names of the workspace subdirectories inside the cache directory.
const (
	BundlerConfigDirName = "bundler-config"
	TypesDirName         = "types"
	UtilitiesDirName     = "utilities"
	RuntimeDirName       = "runtime"
	ComponentsDirName    = "components"

	// BundlerConfigFileName is the bundler configuration every composed
	// command points at.
	BundlerConfigFileName = "webpack.mix.js"

	// StampFileName records which tool version provisioned the workspace.
	StampFileName = "provision.yaml"

	// ManifestFileName is the project's package manifest.
	ManifestFileName = "package.json"
)

// Paths holds every absolute path the tool reads or writes. It is derived
// once from the project root and the Config.
type Paths struct {
	// Root is the absolute project root.
	Root string

	// CacheDir is the hidden workspace directory.
	CacheDir string

	BundlerConfigDir string
	TypesDir         string
	UtilitiesDir     string
	ComponentsDir    string

	// BundlerConfigFile is the provisioned bundler configuration.
	BundlerConfigFile string

	// StampFile is the provisioning record inside CacheDir.
	StampFile string

	// ConfigSource is the user's configuration source file.
	ConfigSource string

	// DistDir is the production build output.
	DistDir string

	// DependencyDir is the package install directory.
	DependencyDir string

	// BinDir holds the executables installed by the project's packages
	// (node_modules/.bin). External tools are looked up here first.
	BinDir string

	// Manifest is the project's package.json.
	Manifest string

	// AssetsDir is the on-disk package assets directory, or empty when the
	// embedded templates are used.
	AssetsDir string
}

// NewPaths resolves root to an absolute path and derives all workspace
// paths from it.
func NewPaths(root string, cfg *Config) (Paths, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve project root %q: %w", root, err)
	}

	cache := filepath.Join(absRoot, cfg.CacheDir)
	bundlerDir := filepath.Join(cache, BundlerConfigDirName)

	p := Paths{
		Root:              absRoot,
		CacheDir:          cache,
		BundlerConfigDir:  bundlerDir,
		TypesDir:          filepath.Join(cache, TypesDirName),
		UtilitiesDir:      filepath.Join(cache, UtilitiesDirName),
		ComponentsDir:     filepath.Join(cache, RuntimeDirName, ComponentsDirName),
		BundlerConfigFile: filepath.Join(bundlerDir, BundlerConfigFileName),
		StampFile:         filepath.Join(cache, StampFileName),
		ConfigSource:      filepath.Join(absRoot, cfg.ConfigSource),
		DistDir:           filepath.Join(absRoot, cfg.DistDir),
		DependencyDir:     filepath.Join(absRoot, cfg.DependencyDir),
		BinDir:            filepath.Join(absRoot, cfg.DependencyDir, ".bin"),
		Manifest:          filepath.Join(absRoot, ManifestFileName),
	}

	if cfg.AssetsDir != "" {
		assets := cfg.AssetsDir
		if !filepath.IsAbs(assets) {
			assets = filepath.Join(absRoot, assets)
		}
		p.AssetsDir = assets
	}
	return p, nil
}

// WorkspaceDirs lists the directories that provisioning must create, parents
// before children.
func (p Paths) WorkspaceDirs() []string {
	return []string{
		p.CacheDir,
		p.BundlerConfigDir,
		p.TypesDir,
		p.UtilitiesDir,
		p.ComponentsDir,
	}
}
