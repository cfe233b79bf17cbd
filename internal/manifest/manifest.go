// Package manifest reads the project's package.json and works out which
// package manager owns the project.
//
// package.json files in the wild often carry comments or trailing commas
// (they are edited by hand next to tsconfig.json), so the file is passed
// through github.com/tidwall/jsonc before decoding with encoding/json.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/vulx/internal/model"
)

// PackageName is the npm package that provides vulx's templates and runtime.
const PackageName = "vulmix"

// UpgradeTag is the dist-tag installed by the upgrade verb.
const UpgradeTag = "preview"

// Manifest holds the package.json fields vulx cares about. Unknown fields
// are ignored.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	PackageManager  string            `json:"packageManager"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Load reads and parses the manifest at path. A missing file returns
// (nil, nil): projects are allowed to run without one.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &m, nil
}

// DependencyVersion returns the version range declared for name, looking at
// dependencies first and devDependencies second.
func (m *Manifest) DependencyVersion(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	if v, ok := m.Dependencies[name]; ok {
		return v, true
	}
	v, ok := m.DevDependencies[name]
	return v, ok
}

// PackageManager identifies a Node package manager.
type PackageManager string

const (
	NPM  PackageManager = "npm"
	PNPM PackageManager = "pnpm"
	Yarn PackageManager = "yarn"
)

// lockfiles maps lockfile names to their package manager, in detection
// order.
var lockfiles = []struct {
	name string
	pm   PackageManager
}{
	{"pnpm-lock.yaml", PNPM},
	{"yarn.lock", Yarn},
}

// Detect returns the package manager of the project at root. The manifest's
// packageManager field ("pnpm@8.6.0") wins, then lockfiles, then npm.
func Detect(root string, m *Manifest) PackageManager {
	if m != nil && m.PackageManager != "" {
		name, _, _ := strings.Cut(m.PackageManager, "@")
		switch PackageManager(name) {
		case NPM, PNPM, Yarn:
			return PackageManager(name)
		}
	}

	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(root, lf.name)); err == nil {
			return lf.pm
		}
	}
	return NPM
}

// AddDevCommand returns the command that installs pkg as a dev dependency.
func (pm PackageManager) AddDevCommand(pkg string) model.Command {
	switch pm {
	case PNPM:
		return model.Command{Program: "pnpm", Args: []string{"add", "--save-dev", pkg}}
	case Yarn:
		return model.Command{Program: "yarn", Args: []string{"add", "--dev", pkg}}
	default:
		return model.Command{Program: "npm", Args: []string{"install", "--save-dev", pkg}}
	}
}

// UpgradeTarget is the package spec installed by the upgrade verb.
func UpgradeTarget() string {
	return PackageName + "@" + UpgradeTag
}
