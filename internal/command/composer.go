// Package command turns a build Mode and a resolved port into the exact
// external command line to run.
//
// Composition is a pure function of its inputs: the same mode, port,
// toolchain and paths always yield the same token sequence. Flags are
// emitted in a fixed order:
//
//	hot:   <bundler> watch --mix-config=<cfg> --hot -- --port=<port>
//	prod:  <bundler> --mix-config=<cfg> --production
//	serve: <bundler> --mix-config=<cfg> --production
//	       && <server> -p <port> -a localhost <dist> --gzip --proxy http://localhost:<port>?
//
// The bundler configuration is always the provisioned copy inside the
// workspace, never the package template, so user edits to the workspace
// copy are honoured.
package command

import (
	"fmt"
	"strconv"

	"github.com/mmr-tortoise/vulx/internal/config"
	"github.com/mmr-tortoise/vulx/internal/model"
)

const (
	watchFlag      = "watch"
	hotFlag        = "--hot"
	productionFlag = "--production"

	// serveHost is the interface the static server binds and the host its
	// proxy fallback points at.
	serveHost = "localhost"
)

// Compose builds the command for mode. port must be a resolved lease for
// modes that require one and is ignored otherwise.
func Compose(mode model.Mode, port int, tools config.Toolchain, paths config.Paths) (model.ComposedCommand, error) {
	if !mode.IsValid() {
		return model.ComposedCommand{}, fmt.Errorf("unknown build mode %q", mode)
	}
	if mode.RequiresPort() && (port < 1 || port > 65535) {
		return model.ComposedCommand{}, fmt.Errorf("%s mode requires a resolved port, got %d", mode, port)
	}
	if len(tools.Bundler) == 0 {
		return model.ComposedCommand{}, fmt.Errorf("no bundler command configured")
	}

	build := bundlerCommand(mode, port, tools.Bundler, paths.BundlerConfigFile)
	cc := model.ComposedCommand{Mode: mode, Steps: []model.Command{build}}

	if mode == model.ModeServe {
		if len(tools.Server) == 0 {
			return model.ComposedCommand{}, fmt.Errorf("no static server command configured")
		}
		cc.Steps = append(cc.Steps, serverCommand(port, tools.Server, paths.DistDir))
	}
	return cc, nil
}

// bundlerCommand builds the bundler invocation shared by all modes.
func bundlerCommand(mode model.Mode, port int, bundler []string, configFile string) model.Command {
	args := append([]string{}, bundler[1:]...)

	if mode == model.ModeHot {
		args = append(args, watchFlag)
	}

	args = append(args, "--mix-config="+configFile)

	if mode == model.ModeHot {
		// Everything after "--" is forwarded to the dev server.
		args = append(args, hotFlag, "--", "--port="+strconv.Itoa(port))
	}

	if mode == model.ModeProd || mode == model.ModeServe {
		args = append(args, productionFlag)
	}

	return model.Command{Program: bundler[0], Args: args}
}

// serverCommand builds the static server invocation chained after a serve
// build. Requests the server cannot answer from disk are proxied back to
// the same origin, which makes client-side routes resolve to index.html.
func serverCommand(port int, server []string, distDir string) model.Command {
	p := strconv.Itoa(port)
	args := append([]string{}, server[1:]...)
	args = append(args,
		"-p", p,
		"-a", serveHost,
		distDir,
		"--gzip",
		"--proxy", fmt.Sprintf("http://%s:%s?", serveHost, p),
	)
	return model.Command{Program: server[0], Args: args}
}
