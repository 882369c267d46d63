// Package cli wires the kong command tree: analyze, window, ui, config.
package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/akita-tools/akita/internal/config"
)

// CLI is the root command structure.
type CLI struct {
	Format  string `help:"Output format: text or ndjson" enum:"text,ndjson" default:"${config_format}"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`
	Verbose bool   `short:"v" help:"Enable verbose debug logging to stderr"`

	Analyze AnalyzeCmd `cmd:"" help:"Analyze a logcat capture: kills, startups, residency"`
	Window  WindowCmd  `cmd:"" help:"Locate the last continuous-startup test window in a capture"`
	UI      UICmd      `cmd:"" help:"Browse an analyzed timeline interactively"`
	Config  ConfigCmd  `cmd:"" help:"Configuration commands"`
	Version VersionCmd `cmd:"" help:"Print version"`
}

// ConfigCmd groups configuration subcommands.
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" help:"Show the effective configuration"`
}

// Globals carries shared command state: output streams, effective config and
// the debug logger.
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool

	Stdout io.Writer
	Stderr io.Writer

	Config *config.Config

	logger *zap.SugaredLogger
}

// NewGlobalsWithConfig builds Globals from parsed flags with config fallbacks.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	g := &Globals{
		Format:  c.Format,
		Quiet:   c.Quiet || cfg.Quiet,
		Verbose: c.Verbose || cfg.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}
	if g.Format == "" {
		g.Format = cfg.Format
	}
	g.logger = newLogger(g.Verbose)
	return g
}

// Logger returns the shared debug logger; a nop logger when not verbose.
func (g *Globals) Logger() *zap.SugaredLogger { return g.logger }

// Debug logs a formatted debug message when verbose mode is on.
func (g *Globals) Debug(format string, args ...interface{}) {
	g.logger.Debugf(format, args...)
}

// Version is overridden at build time via -ldflags.
var Version = "dev"

// VersionCmd prints the build version.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run(globals *Globals) error {
	fmt.Fprintln(globals.Stdout, Version)
	return nil
}
