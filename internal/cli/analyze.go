package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/akita-tools/akita/internal/analyzer"
	"github.com/akita-tools/akita/internal/domain"
	"github.com/akita-tools/akita/internal/filter"
	"github.com/akita-tools/akita/internal/output"
	"github.com/akita-tools/akita/internal/report"
)

const timeFlagLayout = "2006-01-02 15:04:05"

// AnalyzeCmd runs the full analysis pipeline over a capture file.
type AnalyzeCmd struct {
	File string `arg:"" required:"" type:"existingfile" help:"Logcat capture file (.gz accepted)"`

	App    []string `short:"a" help:"Tracked package (can be repeated; default: configured app list)"`
	Rounds int      `short:"r" help:"Rounds in the expected startup sequence" default:"0"`

	Start string `help:"Only consider lines at or after this time (YYYY-MM-DD HH:MM:SS)"`
	End   string `help:"Only consider lines at or before this time (YYYY-MM-DD HH:MM:SS)"`

	StrictPIDMatch bool `help:"Require pid equality before a kill marks a tracked app as killed"`

	Where  []string      `short:"w" help:"Filter emitted events, e.g. 'kind=kill' or 'package^com.tencent' (can be repeated)"`
	Dedupe time.Duration `help:"Collapse events with identical raw lines within this window (0 disables)"`

	Window  bool `help:"Also locate the last continuous-startup window"`
	NoColor bool `help:"Disable colored output"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run(globals *Globals) error {
	opts, err := analyzerOptions(globals, c.App, c.Rounds, c.StrictPIDMatch, c.Start, c.End)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_FLAG", err.Error())
	}

	globals.Debug("analyzing %s", c.File)
	res, err := analyzer.AnalyzeFile(c.File, opts)
	if err != nil {
		return outputErrorCommon(globals, "ANALYZE_FAILED", err.Error())
	}

	var window *domain.WindowResult
	if c.Window {
		w := analyzer.DetectWindow(res.Events, opts)
		window = &w
	}

	events, classified, err := c.filterOutput(res)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_WHERE", err.Error())
	}

	if globals.Format == "ndjson" {
		return writeNDJSON(globals, res, events, classified, window)
	}

	r := report.New(globals.Stdout, useColor(globals, c.NoColor))
	filtered := *res
	filtered.Events = events
	filtered.Classified = classified
	r.Render(&filtered, window)
	return nil
}

// filterOutput applies --where/--dedupe to the emitted timeline. Filtering
// happens after analysis so correlation and counts see the full capture.
func (c *AnalyzeCmd) filterOutput(res *analyzer.Result) ([]*domain.LogEvent, []*domain.ClassifiedEvent, error) {
	events := res.Events

	if c.Dedupe > 0 {
		events = filter.NewDedupeFilter(c.Dedupe).Apply(events)
	}

	wf, err := filter.NewWhereFilter(c.Where)
	if err != nil {
		return nil, nil, err
	}
	events = wf.Apply(events)

	kept := make(map[*domain.LogEvent]bool, len(events))
	for _, ev := range events {
		kept[ev] = true
	}
	classified := make([]*domain.ClassifiedEvent, 0, len(res.Classified))
	for _, ce := range res.Classified {
		if kept[ce.Event] {
			classified = append(classified, ce)
		}
	}
	return events, classified, nil
}

// analyzerOptions assembles engine options from flags with config fallbacks.
func analyzerOptions(globals *Globals, apps []string, rounds int, strictPID bool, start, end string) (analyzer.Options, error) {
	cfg := globals.Config

	opts := analyzer.Options{
		Apps:           apps,
		Rounds:         rounds,
		Tolerance:      cfg.Analysis.Tolerance,
		StrictPIDMatch: strictPID || cfg.Analysis.StrictPIDMatch,
		Overrides:      cfg.PatternOverrides(),
		Logger:         globals.Logger(),
	}
	if len(opts.Apps) == 0 {
		opts.Apps = cfg.Analysis.Apps
	}
	if opts.Rounds == 0 {
		opts.Rounds = cfg.Analysis.Rounds
	}

	var err error
	if opts.StartTime, err = parseTimeFlag(start); err != nil {
		return opts, fmt.Errorf("invalid --start: %w", err)
	}
	if opts.EndTime, err = parseTimeFlag(end); err != nil {
		return opts, fmt.Errorf("invalid --end: %w", err)
	}
	return opts, nil
}

func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeFlagLayout, s)
}

// writeNDJSON streams the analysis as typed NDJSON lines.
func writeNDJSON(globals *Globals, res *analyzer.Result, events []*domain.LogEvent, classified []*domain.ClassifiedEvent, window *domain.WindowResult) error {
	w := output.NewNDJSONWriter(globals.Stdout)

	byEvent := make(map[*domain.LogEvent]*domain.ClassifiedEvent, len(classified))
	for _, ce := range classified {
		byEvent[ce.Event] = ce
	}
	for _, ev := range events {
		if err := w.WriteEvent(ev, byEvent[ev]); err != nil {
			return err
		}
	}
	for _, s := range res.Sessions {
		if err := w.WriteSession(s); err != nil {
			return err
		}
	}
	if err := w.WriteSummary(res.RunID, res.SkippedLines, res.Summary); err != nil {
		return err
	}
	if window != nil {
		return w.WriteWindow(*window)
	}
	return nil
}

// useColor enables styling only for real terminals.
func useColor(globals *Globals, noColor bool) bool {
	if noColor || globals.Quiet {
		return false
	}
	f, ok := globals.Stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
