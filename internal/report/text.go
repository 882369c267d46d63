// Package report renders the engine's output contract as terminal text. It
// consumes the analyzer result only; no engine internals leak in here.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/akita-tools/akita/internal/analyzer"
	"github.com/akita-tools/akita/internal/domain"
)

const timeFormat = "01-02 15:04:05.000"

// Renderer writes report sections to one writer.
type Renderer struct {
	w     io.Writer
	color bool

	cold    lipgloss.Style
	hot     lipgloss.Style
	dead    lipgloss.Style
	alive   lipgloss.Style
	heading lipgloss.Style
	dim     lipgloss.Style
}

// New creates a Renderer; color styling is dropped when color is false.
func New(w io.Writer, color bool) *Renderer {
	return &Renderer{
		w:       w,
		color:   color,
		cold:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		hot:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		dead:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		alive:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		heading: lipgloss.NewStyle().Bold(true),
		dim:     lipgloss.NewStyle().Faint(true),
	}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) section(title string) {
	fmt.Fprintf(r.w, "\n%s\n", r.style(r.heading, title))
}

// Render writes the full report: summary, memory distributions, per-package
// tallies, residency table, heatmap and window result when present.
func (r *Renderer) Render(res *analyzer.Result, window *domain.WindowResult) {
	fmt.Fprintf(r.w, "%s %s\n", r.style(r.heading, "analysis run"), res.RunID)

	r.renderSummary(res.Summary, res.SkippedLines)
	r.renderMemory(res.Summary.Memory)
	r.renderPackages(res.Summary)
	r.renderTimeline(res.Classified)
	r.renderSessions(res.Sessions, res.Events)
	r.renderResidency(res.Residency)
	if res.Heatmap != nil {
		r.renderHeatmap(res.Heatmap)
	}
	if window != nil {
		r.RenderWindow(*window)
	}
}

func (r *Renderer) renderSummary(s *domain.Summary, skipped int) {
	r.section("event summary")
	t := tablewriter.NewTable(r.w)
	t.Header("kind", "count")
	t.Append("start", strconv.Itoa(s.StartCount))
	t.Append("kill", strconv.Itoa(s.KillCount))
	t.Append("lmk", strconv.Itoa(s.LMKCount))
	t.Append("trig", strconv.Itoa(s.TrigCount))
	t.Append("skip", strconv.Itoa(s.SkipCount))
	t.Append("proc_start_only", strconv.Itoa(s.ProcStartOnlyCount))
	t.Append("total", strconv.Itoa(s.TotalEvents))
	t.Render()
	if skipped > 0 {
		fmt.Fprintln(r.w, r.style(r.dim, fmt.Sprintf("%d malformed lines skipped", skipped)))
	}
}

func (r *Renderer) renderMemory(m domain.MemoryStats) {
	if m.MemFree.Count == 0 && m.FilePages.Count == 0 && m.AnonPages.Count == 0 && m.SwapFree.Count == 0 {
		return
	}
	r.section("memory at kill time (kB)")
	t := tablewriter.NewTable(r.w)
	t.Header("metric", "n", "avg", "median", "p95", "min", "max")
	row := func(name string, d domain.Distribution) {
		if d.Count == 0 {
			t.Append(name, "0", "-", "-", "-", "-", "-")
			return
		}
		t.Append(name,
			strconv.Itoa(d.Count),
			fmt.Sprintf("%.0f", d.Avg),
			fmt.Sprintf("%.0f", d.Median),
			fmt.Sprintf("%.0f", d.P95),
			fmt.Sprintf("%.0f", d.Min),
			fmt.Sprintf("%.0f", d.Max),
		)
	}
	row("mem_free", m.MemFree)
	row("file_pages", m.FilePages)
	row("anon_pages", m.AnonPages)
	row("swap_free", m.SwapFree)
	t.Render()
}

func (r *Renderer) renderPackages(s *domain.Summary) {
	type pkgRow struct {
		name  string
		tally *domain.PackageTally
	}
	rows := lo.MapToSlice(s.PerPackage, func(name string, t *domain.PackageTally) pkgRow {
		return pkgRow{name: name, tally: t}
	})
	rows = lo.Filter(rows, func(p pkgRow, _ int) bool {
		return p.tally.Kill+p.tally.LMK > 0
	})
	if len(rows) == 0 {
		return
	}
	sort.Slice(rows, func(i, j int) bool {
		ki, kj := rows[i].tally.Kill+rows[i].tally.LMK, rows[j].tally.Kill+rows[j].tally.LMK
		if ki != kj {
			return ki > kj
		}
		return rows[i].name < rows[j].name
	})

	r.section("kills per package")
	t := tablewriter.NewTable(r.w)
	t.Header("package", "starts", "kills", "lmk", "skips")
	for _, p := range rows {
		t.Append(p.name,
			strconv.Itoa(p.tally.Start),
			strconv.Itoa(p.tally.Kill),
			strconv.Itoa(p.tally.LMK),
			strconv.Itoa(p.tally.Skip),
		)
	}
	t.Render()
}

func (r *Renderer) renderTimeline(classified []*domain.ClassifiedEvent) {
	if len(classified) == 0 {
		return
	}
	r.section("classified starts")
	t := tablewriter.NewTable(r.w)
	t.Header("time", "package", "verdict", "slot", "round", "note")
	for _, ce := range classified {
		verdict := string(ce.Verdict)
		if ce.Verdict == domain.VerdictCold {
			verdict = r.style(r.cold, verdict)
		} else {
			verdict = r.style(r.hot, verdict)
		}
		slot := "-"
		if ce.Slot >= 0 {
			slot = strconv.Itoa(ce.Slot + 1)
		}
		t.Append(
			ce.Event.Time.Format(timeFormat),
			ce.Event.ProcessName,
			verdict,
			slot,
			strconv.Itoa(ce.Round),
			ce.AnomalyNote,
		)
	}
	t.Render()
}

func (r *Renderer) renderSessions(sessions []*domain.ProcessSession, events []*domain.LogEvent) {
	if len(sessions) == 0 {
		return
	}
	var logEnd time.Time
	if len(events) > 0 {
		logEnd = events[len(events)-1].Time
	}

	r.section("process sessions")
	t := tablewriter.NewTable(r.w)
	t.Header("package", "#", "start", "end", "lifetime", "ended by")
	for _, s := range sessions {
		end := r.style(r.dim, "open")
		endedBy := "-"
		if s.Closed() {
			end = s.End.Format(timeFormat)
			if s.EndedBy != "" {
				endedBy = string(s.EndedBy)
				if s.EndReason != "" {
					endedBy += " (" + s.EndReason + ")"
				}
			} else {
				// Closed by a relaunch of the same package.
				endedBy = r.style(r.dim, "relaunch")
			}
		}
		t.Append(
			s.Package,
			strconv.Itoa(s.Session),
			s.Start.Format(timeFormat),
			end,
			s.Duration(logEnd).Truncate(time.Millisecond).String(),
			endedBy,
		)
	}
	t.Render()
}

func (r *Renderer) renderResidency(rows []*domain.ResidencyRecord) {
	if len(rows) == 0 {
		return
	}
	r.section("residency")
	t := tablewriter.NewTable(r.w)
	t.Header("seq", "package", "prev1", "prev2", "prev3", "prev4", "prev5", "all")
	rate := func(wr domain.WindowRate) string {
		if wr.Total == 0 {
			return "-"
		}
		return fmt.Sprintf("%d/%d (%.1f%%)", wr.Alive, wr.Total, wr.Percent())
	}
	for _, rec := range rows {
		t.Append(
			strconv.Itoa(rec.Seq),
			rec.Package,
			rate(rec.PerWindow[1]),
			rate(rec.PerWindow[2]),
			rate(rec.PerWindow[3]),
			rate(rec.PerWindow[4]),
			rate(rec.PerWindow[5]),
			rate(rec.All),
		)
	}
	t.Render()
}

func (r *Renderer) renderHeatmap(hm *domain.Heatmap) {
	r.section("survival heatmap")
	t := tablewriter.NewTable(r.w)

	header := make([]any, 0, len(hm.Slots)+2)
	header = append(header, "package")
	for i, slot := range hm.Slots {
		label := fmt.Sprintf("r%d#%d", slot.Round, i%len(hm.Packages)+1)
		if slot.Missing {
			label += "?"
		}
		header = append(header, label)
	}
	header = append(header, "alive")
	t.Header(header...)

	for p, pkg := range hm.Packages {
		row := make([]any, 0, len(hm.Slots)+2)
		row = append(row, pkg)
		for s := range hm.Slots {
			row = append(row, r.cellText(hm, p, s))
		}
		row = append(row, strconv.Itoa(hm.RowAlive[p]))
		t.Append(row...)
	}
	t.Render()
	fmt.Fprintln(r.w, r.style(r.dim, "2=started this slot, 1=resident, 0=dead, ·=slot missing"))
}

func (r *Renderer) cellText(hm *domain.Heatmap, p, s int) string {
	if hm.Slots[s].Missing {
		return r.style(r.dim, "·")
	}
	switch hm.Cells[p][s] {
	case domain.CellSelf:
		return r.style(r.hot, "2")
	case domain.CellAlive:
		return r.style(r.alive, "1")
	default:
		return r.style(r.dead, "0")
	}
}

// RenderWindow writes the startup-window alignment result.
func (r *Renderer) RenderWindow(w domain.WindowResult) {
	r.section("startup window")
	if !w.Detected {
		fmt.Fprintln(r.w, "no startup window detected")
		return
	}
	conf := string(w.Confidence)
	switch w.Confidence {
	case domain.ConfidenceHigh:
		conf = r.style(r.hot, conf)
	case domain.ConfidenceLow:
		conf = r.style(r.cold, conf)
	}
	fmt.Fprintf(r.w, "window   %s .. %s (%.0fs)\n",
		w.Start.Format(timeFormat), w.End.Format(timeFormat), w.DurationSec)
	fmt.Fprintf(r.w, "matched  %d/%d (%.1f%%), mismatch %d (tolerance %d)\n",
		w.MatchedCount, w.ExpectedCount, w.MatchScore, w.MismatchCount, w.Tolerance)
	fmt.Fprintf(r.w, "tail gap %.0fs, confidence %s\n", w.TailGapSec, conf)
}
