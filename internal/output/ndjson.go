// Package output emits analysis results in machine-readable formats. The
// NDJSON stream carries one typed object per line so downstream tooling can
// consume events without buffering the whole report.
package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/akita-tools/akita/internal/domain"
)

// SchemaVersion identifies the NDJSON contract; bump on breaking changes.
const SchemaVersion = 1

// NDJSONWriter writes newline-delimited JSON objects.
type NDJSONWriter struct {
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer targeting w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

// eventLine is the per-event NDJSON shape.
type eventLine struct {
	Type          string `json:"type"` // "event"
	SchemaVersion int    `json:"schemaVersion"`
	Time          string `json:"time"`
	Kind          string `json:"kind"`
	Package       string `json:"package"`
	Full          string `json:"full,omitempty"`
	Subprocess    bool   `json:"subprocess,omitempty"`

	Verdict string `json:"verdict,omitempty"`
	Slot    *int   `json:"slot,omitempty"`
	Round   *int   `json:"round,omitempty"`
	Anomaly string `json:"anomaly,omitempty"`

	PID    string `json:"pid,omitempty"`
	Reason string `json:"reason,omitempty"`
	RSSKB  string `json:"rss_kb,omitempty"`

	DisplayedMS int `json:"displayed_ms,omitempty"`
}

// WriteEvent emits one timeline event; ce may be nil for unclassified kinds.
func (w *NDJSONWriter) WriteEvent(ev *domain.LogEvent, ce *domain.ClassifiedEvent) error {
	line := eventLine{
		Type:          "event",
		SchemaVersion: SchemaVersion,
		Time:          ev.Time.UTC().Format(time.RFC3339Nano),
		Kind:          string(ev.Kind),
		Package:       ev.ProcessName,
		Subprocess:    ev.IsSubprocess,
	}
	if ev.FullName != ev.ProcessName {
		line.Full = ev.FullName
	}
	if ce != nil {
		line.Verdict = string(ce.Verdict)
		if ce.Slot >= 0 {
			slot, round := ce.Slot, ce.Round
			line.Slot = &slot
			line.Round = &round
		}
		line.Anomaly = ce.AnomalyNote
	}
	switch {
	case ev.LMK != nil:
		line.PID = ev.LMK.PID
		line.Reason = ev.LMK.Reason
		line.RSSKB = ev.LMK.RSSKB
	case ev.Kill != nil:
		line.PID = ev.Kill.Proc.PID
		line.Reason = ev.Kill.Proc.Reason
	case ev.AMKill != nil:
		line.PID = ev.AMKill.PID
		line.Reason = ev.AMKill.Reason
	}
	if ev.Start != nil {
		line.DisplayedMS = ev.Start.DisplayedMS
		if ev.Start.ProcStart != nil {
			line.PID = ev.Start.ProcStart.PID
		}
	}
	return w.enc.Encode(line)
}

// summaryLine wraps the run summary.
type summaryLine struct {
	Type          string          `json:"type"` // "summary"
	SchemaVersion int             `json:"schemaVersion"`
	RunID         string          `json:"run_id"`
	SkippedLines  int             `json:"skipped_lines,omitempty"`
	Summary       *domain.Summary `json:"summary"`
}

// WriteSummary emits the run summary line.
func (w *NDJSONWriter) WriteSummary(runID string, skipped int, s *domain.Summary) error {
	return w.enc.Encode(summaryLine{
		Type:          "summary",
		SchemaVersion: SchemaVersion,
		RunID:         runID,
		SkippedLines:  skipped,
		Summary:       s,
	})
}

// windowLine wraps the startup-window result.
type windowLine struct {
	Type          string              `json:"type"` // "window"
	SchemaVersion int                 `json:"schemaVersion"`
	Window        domain.WindowResult `json:"window"`
}

// WriteWindow emits the startup-window alignment result.
func (w *NDJSONWriter) WriteWindow(res domain.WindowResult) error {
	return w.enc.Encode(windowLine{
		Type:          "window",
		SchemaVersion: SchemaVersion,
		Window:        res,
	})
}

// sessionLine wraps one process session span.
type sessionLine struct {
	Type          string                 `json:"type"` // "session"
	SchemaVersion int                    `json:"schemaVersion"`
	Session       *domain.ProcessSession `json:"session"`
}

// WriteSession emits one process session span.
func (w *NDJSONWriter) WriteSession(s *domain.ProcessSession) error {
	return w.enc.Encode(sessionLine{
		Type:          "session",
		SchemaVersion: SchemaVersion,
		Session:       s,
	})
}

// errorLine is the machine-readable failure shape.
type errorLine struct {
	Type          string `json:"type"` // "error"
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// WriteError emits a machine-readable failure.
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	line := errorLine{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		line.Hint = hint[0]
	}
	return w.enc.Encode(line)
}
