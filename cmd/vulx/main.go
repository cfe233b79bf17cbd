// Package main is the entry point for the vulx CLI.
//
// vulx provisions the build workspace of a Vulmix project and drives the
// bundler, type-checker and static server for it. All functionality lives
// in the internal/cli package, which defines the cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags
// during the release build. During development, they default to "dev",
// "none", and "unknown" respectively.
package main

import (
	"github.com/mmr-tortoise/vulx/internal/cli"
)

// version, commit, and date are set at build time via ldflags
// (-X main.version=...). They back the --version flag and the banner.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
