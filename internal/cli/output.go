package cli

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/mmr-tortoise/vulx/internal/workspace"
)

// setupOutput applies --no-color and builds the logger for this run.
func setupOutput(w io.Writer) {
	if noColor {
		color.NoColor = true
	}
	logger = newLogger(w, verbose, !color.NoColor)
}

// newLogger returns a console logger without timestamps or callers, which
// reads like regular CLI output. Debug entries only appear when verbose.
func newLogger(w io.Writer, verbose, colored bool) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.NameKey = ""
	if colored {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// VerboseLog prints a debug message. It only shows with --verbose.
func VerboseLog(format string, args ...interface{}) {
	logger.Sugar().Debugf(format, args...)
}

// spinnerProgress shows a spinner while templates are copied.
type spinnerProgress struct {
	s *spinner.Spinner
}

// newProgress returns a spinner on f when it is a terminal. In verbose mode
// the per-file log lines replace the spinner.
func newProgress(f *os.File) workspace.Progress {
	if verbose || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	return &spinnerProgress{s: s}
}

func (p *spinnerProgress) Start(message string) {
	p.s.Suffix = " " + message
	p.s.Start()
}

func (p *spinnerProgress) Stop() {
	p.s.Stop()
}
