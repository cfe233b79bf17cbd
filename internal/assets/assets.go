// Package assets provides the template files that provisioning copies into
// the workspace.
//
// The templates ship inside the binary (embed.FS) so the installed tool
// version and its templates can never drift apart. A package assets
// directory on disk can replace them, which is how a locally checked-out
// vulmix package is tested against a project.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed all:templates
var embedded embed.FS

// EmbeddedSource names the built-in asset source in logs and in the
// provisioning stamp.
const EmbeddedSource = "embedded"

// Asset paths, relative to the root of an asset source.
const (
	TSConfig     = "utils/tsconfig.json"
	VueShims     = "types/vue-shims.d.ts"
	EnvTypes     = "types/env.d.ts"
	ComponentDir = "runtime/components"
)

// MixConfig returns the bundler configuration template. Dev mode selects the
// variant that resolves the package from its own checkout.
func MixConfig(devMode bool) string {
	if devMode {
		return "utils/webpack.mix.dev.js"
	}
	return "utils/webpack.mix.js"
}

// ConfigHelper returns the defineVulmixConfig helper template.
func ConfigHelper(devMode bool) string {
	if devMode {
		return "utils/defineVulmixConfig.dev.ts"
	}
	return "utils/defineVulmixConfig.ts"
}

// Embedded returns the templates compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		// fs.Sub only fails on an invalid path literal.
		panic(err)
	}
	return sub
}

// Source returns the asset filesystem to provision from and a name for it.
// An empty dir selects the embedded templates.
func Source(dir string) (fs.FS, string, error) {
	if dir == "" {
		return Embedded(), EmbeddedSource, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, "", fmt.Errorf("package assets directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, "", fmt.Errorf("package assets path %s is not a directory", dir)
	}
	return os.DirFS(dir), dir, nil
}
