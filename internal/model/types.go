package model

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects which flavour of bundler invocation is composed.
//
//	hot   → watch mode with a hot-reload dev server (needs a port)
//	prod  → one-shot optimized build
//	serve → optimized build chained with a static file server (needs a port)
type Mode string

const (
	// ModeHot runs the bundler in watch mode with hot module reloading.
	ModeHot Mode = "hot"

	// ModeProd runs a single optimized production build.
	ModeProd Mode = "prod"

	// ModeServe builds for production and then serves the output directory.
	ModeServe Mode = "serve"
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	return string(m)
}

// IsValid reports whether m is one of the defined modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeHot, ModeProd, ModeServe:
		return true
	default:
		return false
	}
}

// RequiresPort reports whether the composed command for this mode embeds a
// live network port. Prod builds never bind a port.
func (m Mode) RequiresPort() bool {
	return m == ModeHot || m == ModeServe
}

// Verb is the positional CLI entry point. Each verb maps to a fixed
// sequence of component invocations in the orchestrator.
type Verb string

const (
	VerbPrepare Verb = "prepare"
	VerbDev     Verb = "dev"
	VerbProd    Verb = "prod"
	VerbServe   Verb = "serve"
	VerbUpgrade Verb = "upgrade"
	VerbClean   Verb = "clean"

	// VerbUnknown is produced for every token that is not a recognized verb.
	// It is informational, not an error.
	VerbUnknown Verb = "unknown"
)

// Verbs lists the recognized verbs in the order they are shown to users.
var Verbs = []Verb{VerbDev, VerbProd, VerbServe, VerbPrepare, VerbUpgrade, VerbClean}

// String returns the string representation of Verb.
func (v Verb) String() string {
	return string(v)
}

// ParseVerb converts a CLI token into a Verb. Matching is exact: verbs are
// lowercase words and anything else, including the empty string, maps to
// VerbUnknown.
func ParseVerb(s string) Verb {
	for _, v := range Verbs {
		if string(v) == s {
			return v
		}
	}
	return VerbUnknown
}

// VerbList renders the recognized verbs as "dev|prod|serve|...".
func VerbList() string {
	names := make([]string, len(Verbs))
	for i, v := range Verbs {
		names[i] = string(v)
	}
	return strings.Join(names, "|")
}

// Command is a single external invocation: a program and its arguments.
// Arguments are passed to the program as-is, never through a shell.
type Command struct {
	Program string
	Args    []string
}

// Tokens returns the program followed by its arguments.
func (c Command) Tokens() []string {
	return append([]string{c.Program}, c.Args...)
}

// String renders the command as a shell-quoted line. It is used for logs
// and error messages only; execution never goes through a shell.
func (c Command) String() string {
	tokens := c.Tokens()
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = shellQuote(t)
	}
	return strings.Join(quoted, " ")
}

// ComposedCommand is the fully resolved external work for one build run.
// Steps run in order and each step only starts after the previous one
// exited successfully.
type ComposedCommand struct {
	Mode  Mode
	Steps []Command
}

// String renders all steps joined with " && ".
func (c ComposedCommand) String() string {
	parts := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, " && ")
}

// PortLease is a port found free by the allocator. It is only valid for the
// invocation that acquired it; nothing keeps it reserved.
type PortLease struct {
	// Port is the port that was free at probe time.
	Port int

	// Preferred is the port the allocator started probing from.
	Preferred int
}

// Shifted reports whether the preferred port was taken and another port
// had to be chosen.
func (l PortLease) Shifted() bool {
	return l.Port != l.Preferred
}

// shellQuote single-quotes a token when it contains characters that a POSIX
// shell would interpret.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]{}!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ExitCode defines the process exit codes of the vulx CLI.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitProvisionFailed indicates the workspace could not be provisioned,
	// either because a filesystem operation failed or because the type-checker
	// rejected the configuration source.
	ExitProvisionFailed ExitCode = 2

	// ExitConfigError indicates the tool configuration could not be loaded
	// or is invalid.
	ExitConfigError ExitCode = 3

	// ExitPortAllocationFailed indicates no free port could be found.
	ExitPortAllocationFailed ExitCode = 4

	// ExitCleanFailed indicates the workspace or dependency directory could
	// not be removed.
	ExitCleanFailed ExitCode = 6
)

// CLIError is an error that carries an exit code. The CLI layer translates
// it into the process exit status.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the message, followed by the underlying error when present.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// BuildError reports that a delegated external process did not exit
// successfully. ExitCode is the child's exit status; for a process killed
// by a signal it is 128 plus the signal number.
type BuildError struct {
	Command  Command
	ExitCode int
	Signaled bool
	Err      error
}

// Error describes the failed command and how it ended.
func (e *BuildError) Error() string {
	switch {
	case e.Signaled:
		return fmt.Sprintf("%s was terminated by a signal (exit status %d)", e.Command.Program, e.ExitCode)
	case e.Err != nil && e.ExitCode == 127:
		return fmt.Sprintf("%s could not be started: %v", e.Command.Program, e.Err)
	default:
		return fmt.Sprintf("%s exited with status %d", e.Command.Program, e.ExitCode)
	}
}

// Unwrap returns the underlying exec error.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// ExitCodeOf maps any error to the process exit code the CLI should use.
// A nil error is ExitSuccess. BuildErrors propagate the child's status.
func ExitCodeOf(err error) int {
	if err == nil {
		return int(ExitSuccess)
	}

	// A CLIError wrapping a BuildError still reports its own code; the
	// outermost classification wins.
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return int(cliErr.Code)
	}

	var buildErr *BuildError
	if errors.As(err, &buildErr) && buildErr.ExitCode > 0 {
		return buildErr.ExitCode
	}
	return int(ExitGeneralError)
}

// HasCode reports whether err is, or wraps, a CLIError with the given code.
func HasCode(err error, code ExitCode) bool {
	var cliErr *CLIError
	return errors.As(err, &cliErr) && cliErr.Code == code
}
