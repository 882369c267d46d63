package cli

import (
	"github.com/akita-tools/akita/internal/analyzer"
	"github.com/akita-tools/akita/internal/output"
	"github.com/akita-tools/akita/internal/report"
)

// WindowCmd locates the last continuous-startup test window in a capture.
type WindowCmd struct {
	File string `arg:"" required:"" type:"existingfile" help:"Logcat capture file (.gz accepted)"`

	App       []string `short:"a" help:"Tracked package (can be repeated; default: configured app list)"`
	Rounds    int      `short:"r" help:"Rounds in the expected startup sequence" default:"0"`
	Tolerance int      `short:"t" help:"Alignment mismatch budget" default:"0"`

	NoColor bool `help:"Disable colored output"`
}

// Run executes the window command.
func (c *WindowCmd) Run(globals *Globals) error {
	opts, err := analyzerOptions(globals, c.App, c.Rounds, false, "", "")
	if err != nil {
		return outputErrorCommon(globals, "INVALID_FLAG", err.Error())
	}
	if c.Tolerance > 0 {
		opts.Tolerance = c.Tolerance
	}

	res, err := analyzer.AnalyzeFile(c.File, opts)
	if err != nil {
		return outputErrorCommon(globals, "ANALYZE_FAILED", err.Error())
	}

	window := analyzer.DetectWindow(res.Events, opts)

	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteWindow(window)
	}

	report.New(globals.Stdout, useColor(globals, c.NoColor)).RenderWindow(window)
	return nil
}
