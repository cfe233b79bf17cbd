// Package config loads the vulx configuration and derives the filesystem
// paths every other component works with.
//
// Configuration is layered with koanf. Priority, highest first:
//
//	VULMIX_* environment variables > <root>/vulmix.yaml > defaults
//
// The resulting Config and the Paths derived from it are built once at
// process start and handed to each component; nothing below the CLI layer
// recomputes a path on its own.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mmr-tortoise/vulx/internal/model"
)

// EnvPrefix is the prefix of environment variables read into the config.
// VULMIX_PREFERRED_PORT maps to the preferred_port key, and so on.
const EnvPrefix = "VULMIX_"

// ProjectConfigFile is the optional per-project configuration file,
// looked up in the project root.
const ProjectConfigFile = "vulmix.yaml"

// Config is the vulx tool configuration.
type Config struct {
	// CacheDir is the hidden, tool-owned directory under the project root
	// that holds the provisioned workspace.
	CacheDir string `koanf:"cache_dir"`

	// ConfigSource is the user-authored configuration file compiled by
	// the type-checker during provisioning.
	ConfigSource string `koanf:"config_source"`

	// DistDir is the production output directory served by `serve`.
	DistDir string `koanf:"dist_dir"`

	// DependencyDir is the package install directory removed by `clean`.
	DependencyDir string `koanf:"dependency_dir"`

	// PreferredPort is where port probing starts for hot and serve modes.
	PreferredPort int `koanf:"preferred_port"`

	// PortProbeLimit is the number of consecutive candidate ports probed
	// before allocation gives up.
	PortProbeLimit int `koanf:"port_probe_limit"`

	// DevMode selects the ".dev" template variants that point at the
	// package's own sources. Used when working on vulmix itself.
	DevMode bool `koanf:"dev_mode"`

	// AssetsDir overrides the templates embedded in the binary with an
	// on-disk package assets directory. Empty means embedded.
	AssetsDir string `koanf:"assets_dir"`

	// Checker, Bundler and Server are whitespace-separated command prefixes
	// for the external tools. Upgrade overrides the package-manager
	// detection of the upgrade verb when set.
	Checker string `koanf:"checker"`
	Bundler string `koanf:"bundler"`
	Server  string `koanf:"server"`
	Upgrade string `koanf:"upgrade"`
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// Root is the project root. The project config file is looked up here.
	Root string

	// ProjectConfigPath overrides the project config path (default:
	// <Root>/vulmix.yaml). Mostly useful in tests.
	ProjectConfigPath string
}

// Load loads the configuration for the project rooted at root.
func Load(root string) (*Config, error) {
	return LoadWithOptions(LoadOptions{Root: root})
}

// LoadWithOptions loads defaults, the project file and the environment,
// then validates the result. Every failure is a CLIError with
// ExitConfigError.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError, "failed to apply default configuration", err)
		}
	}

	projectPath := opts.ProjectConfigPath
	if projectPath == "" {
		projectPath = filepath.Join(opts.Root, ProjectConfigFile)
	}
	if fileExists(projectPath) {
		if err := k.Load(file.Provider(projectPath), yaml.Parser()); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("failed to load project config %s", projectPath), err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to load environment config", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to decode configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid configuration", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and that every workspace-relative path stays
// inside the project root.
func (c *Config) Validate() error {
	if c.PreferredPort < 1 || c.PreferredPort > 65535 {
		return fmt.Errorf("preferred_port %d out of range (1-65535)", c.PreferredPort)
	}
	if c.PortProbeLimit < 1 || c.PortProbeLimit > 65535 {
		return fmt.Errorf("port_probe_limit %d out of range (1-65535)", c.PortProbeLimit)
	}

	for _, p := range []struct{ key, value string }{
		{"cache_dir", c.CacheDir},
		{"config_source", c.ConfigSource},
		{"dist_dir", c.DistDir},
		{"dependency_dir", c.DependencyDir},
	} {
		if err := validateRelative(p.key, p.value); err != nil {
			return err
		}
	}

	for _, p := range []struct{ key, value string }{
		{"checker", c.Checker},
		{"bundler", c.Bundler},
		{"server", c.Server},
	} {
		if len(strings.Fields(p.value)) == 0 {
			return fmt.Errorf("%s must name a program", p.key)
		}
	}
	return nil
}

// Toolchain returns the tokenized external tool commands.
func (c *Config) Toolchain() Toolchain {
	return Toolchain{
		Checker: strings.Fields(c.Checker),
		Bundler: strings.Fields(c.Bundler),
		Server:  strings.Fields(c.Server),
		Upgrade: strings.Fields(c.Upgrade),
	}
}

// Toolchain holds the external program prefixes as token lists. The first
// token is the program, the rest are leading arguments.
type Toolchain struct {
	Checker []string
	Bundler []string
	Server  []string

	// Upgrade is empty unless the user configured an explicit command.
	Upgrade []string
}

// validateRelative rejects empty, absolute and root-escaping paths.
func validateRelative(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	if filepath.IsAbs(value) {
		return fmt.Errorf("%s must be relative to the project root, got %q", key, value)
	}
	clean := filepath.Clean(value)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s must stay inside the project root, got %q", key, value)
	}
	return nil
}

// envTransform maps VULMIX_PREFERRED_PORT to preferred_port.
func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
