// Package analyzer wires the engine stages together: extraction,
// correlation, startup classification and residency accounting. Each call
// owns fresh state, so independent log files can be analyzed in parallel.
package analyzer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/akita-tools/akita/internal/classify"
	"github.com/akita-tools/akita/internal/correlate"
	"github.com/akita-tools/akita/internal/domain"
	"github.com/akita-tools/akita/internal/extract"
	"github.com/akita-tools/akita/internal/pattern"
	"github.com/akita-tools/akita/internal/residency"
	"github.com/akita-tools/akita/internal/session"
	"github.com/akita-tools/akita/internal/stats"
)

// Options configure one analysis run.
type Options struct {
	// Apps is the ordered tracked-package list; empty disables sequence
	// accounting and tracks every package.
	Apps   []string
	Rounds int

	// Tolerance for the startup-window alignment search.
	Tolerance int

	StrictPIDMatch bool

	// Optional inclusive time filter applied before correlation.
	StartTime time.Time
	EndTime   time.Time

	// Overrides replace built-in patterns/tables; nil keeps defaults.
	Overrides *pattern.Overrides

	Logger *zap.SugaredLogger
	Clock  clock.Clock
}

func (o *Options) logger() *zap.SugaredLogger {
	if o.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return o.Logger
}

// Result is the engine's public contract to its collaborators.
type Result struct {
	RunID string `json:"run_id"`

	// Events is the merged list, sorted ascending by time.
	Events []*domain.LogEvent `json:"events"`

	Classified []*domain.ClassifiedEvent `json:"classified"`
	Summary    *domain.Summary           `json:"summary"`
	Residency  []*domain.ResidencyRecord `json:"residency"`
	Heatmap    *domain.Heatmap           `json:"heatmap"`

	// Sessions are per-package resident spans, start to kill.
	Sessions []*domain.ProcessSession `json:"sessions"`

	// SkippedLines counts structurally matched lines whose payload was
	// malformed; they are diagnostics, never fatal.
	SkippedLines int `json:"skipped_lines"`
}

// AnalyzeReader runs the full pipeline over a log stream.
func AnalyzeReader(r io.Reader, opts Options) (*Result, error) {
	reg, err := pattern.NewRegistry(opts.Overrides)
	if err != nil {
		return nil, fmt.Errorf("building pattern registry: %w", err)
	}

	exOpts := []extract.Option{extract.WithLogger(opts.logger())}
	if opts.Clock != nil {
		exOpts = append(exOpts, extract.WithClock(opts.Clock))
	}
	if !opts.StartTime.IsZero() || !opts.EndTime.IsZero() {
		exOpts = append(exOpts, extract.WithTimeRange(opts.StartTime, opts.EndTime))
	}

	raw, err := extract.New(reg, exOpts...).Scan(r)
	if err != nil {
		return nil, fmt.Errorf("scanning log: %w", err)
	}

	events := correlate.New(opts.logger()).Run(raw)

	classified := classify.New(classify.Options{
		Expected:       opts.Apps,
		Rounds:         opts.Rounds,
		StrictPIDMatch: opts.StrictPIDMatch,
	}, opts.logger()).Run(events)

	res := &Result{
		RunID:        uuid.NewString(),
		Events:       events,
		Classified:   classified,
		Summary:      stats.Compute(events),
		Residency:    residency.Table(events, classified, opts.Apps),
		Sessions:     session.Build(events),
		SkippedLines: raw.SkippedLines,
	}
	if len(opts.Apps) > 0 {
		res.Heatmap = residency.BuildHeatmap(events, classified, opts.Apps, opts.Rounds)
	}
	return res, nil
}

// AnalyzeFile opens a log file (gzip-compressed captures are handled
// transparently) and analyzes it. Failure to open or read the file is the
// only fatal error class.
func AnalyzeFile(path string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return AnalyzeReader(r, opts)
}

// DetectWindow runs the startup-window alignment search over an analyzed
// event list. It never fails; Detected=false is the no-window result.
func DetectWindow(events []*domain.LogEvent, opts Options) domain.WindowResult {
	return residency.DetectLastWindow(events, opts.Apps, opts.Rounds, opts.Tolerance)
}
