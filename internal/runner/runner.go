// Package runner executes composed commands as foreground subprocesses.
//
// The delegated tools own the terminal while they run: their standard
// streams are the runner's streams (the process's own by default), so
// progress bars, colors and interactive prompts pass through unmodified.
// The runner never retries, never goes through a shell, and does not
// intercept interrupts: Ctrl-C reaches the child through the terminal's
// process group.
//
// Tools installed by the project's packages take precedence: a bare program
// name is looked up in BinDir before PATH, and BinDir is prepended to the
// child's PATH so the tools find each other too.
package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/mmr-tortoise/vulx/internal/model"
)

// exitNotStarted is the conventional shell status for "command not found".
const exitNotStarted = 127

// Runner runs external commands with attached standard streams.
type Runner struct {
	// Dir is the working directory of every child process.
	Dir string

	// BinDir, when set, holds project-local executables
	// (node_modules/.bin) that shadow PATH.
	BinDir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	logger *zap.Logger
}

// New creates a Runner that runs children in dir with the current process's
// standard streams.
func New(dir string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Dir:    dir,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		logger: logger,
	}
}

// Run executes the steps of cc in order. A step only starts once the
// previous one exited with status 0; the first failure is returned as a
// *model.BuildError and the remaining steps are skipped.
//
// Run blocks for as long as the children run, which for watch and serve
// modes means until the user interrupts them.
func (r *Runner) Run(ctx context.Context, cc model.ComposedCommand) error {
	for i, step := range cc.Steps {
		r.logger.Debug("running step",
			zap.String("mode", cc.Mode.String()),
			zap.Int("step", i+1),
			zap.Int("of", len(cc.Steps)),
		)
		if err := r.RunCommand(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

// RunCommand executes a single command and waits for it to exit.
func (r *Runner) RunCommand(ctx context.Context, c model.Command) error {
	r.logger.Debug("exec", zap.String("command", c.String()), zap.String("dir", r.Dir))

	// #nosec G204 -- program comes from the tool configuration; args are a vector.
	cmd := exec.CommandContext(ctx, r.resolve(c.Program), c.Args...)
	cmd.Dir = r.Dir
	if r.BinDir != "" {
		cmd.Env = withPathPrefix(os.Environ(), r.BinDir)
	}
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	buildErr := &model.BuildError{Command: c, ExitCode: int(model.ExitGeneralError), Err: err}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			buildErr.Signaled = true
			buildErr.ExitCode = 128 + int(status.Signal())
		} else if code := exitErr.ExitCode(); code > 0 {
			buildErr.ExitCode = code
		}
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		buildErr.ExitCode = exitNotStarted
	}

	r.logger.Debug("command failed",
		zap.String("program", c.Program),
		zap.Int("exit_code", buildErr.ExitCode),
		zap.Bool("signaled", buildErr.Signaled),
		zap.Error(err),
	)
	return buildErr
}

// resolve returns the path of program inside BinDir when it is installed
// there, and program unchanged otherwise. Names containing a separator are
// never rewritten.
func (r *Runner) resolve(program string) string {
	if r.BinDir == "" || strings.ContainsRune(program, filepath.Separator) {
		return program
	}
	candidate := filepath.Join(r.BinDir, program)
	info, err := os.Stat(candidate)
	if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0111 == 0 {
		return program
	}
	r.logger.Debug("resolved local tool", zap.String("program", program), zap.String("path", candidate))
	return candidate
}

// withPathPrefix returns env with dir placed in front of PATH.
func withPathPrefix(env []string, dir string) []string {
	out := make([]string, 0, len(env)+1)
	path := dir
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			if rest := strings.TrimPrefix(kv, "PATH="); rest != "" {
				path = dir + string(os.PathListSeparator) + rest
			}
			continue
		}
		out = append(out, kv)
	}
	return append(out, "PATH="+path)
}
