package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/akita-tools/akita/internal/analyzer"
	"github.com/akita-tools/akita/internal/tui"
)

// UICmd launches an interactive viewer over an analyzed timeline.
type UICmd struct {
	File string `arg:"" required:"" type:"existingfile" help:"Logcat capture file (.gz accepted)"`

	App    []string `short:"a" help:"Tracked package (can be repeated; default: configured app list)"`
	Rounds int      `short:"r" help:"Rounds in the expected startup sequence" default:"0"`
}

// Run executes the ui command.
func (c *UICmd) Run(globals *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	opts, err := analyzerOptions(globals, c.App, c.Rounds, false, "", "")
	if err != nil {
		return outputErrorCommon(globals, "INVALID_FLAG", err.Error())
	}

	globals.Debug("analyzing %s for ui", c.File)
	res, err := analyzer.AnalyzeFile(c.File, opts)
	if err != nil {
		return outputErrorCommon(globals, "ANALYZE_FAILED", err.Error())
	}

	model := tui.New(filepath.Base(c.File), res.Events, res.Classified)
	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui error: %w", err)
	}
	return nil
}
