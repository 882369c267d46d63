// Package correlate post-processes the raw event stream: it attaches
// kill-info records to lmk events, merges am_kill records with integrated
// kill records describing the same death, pairs foreground starts with
// low-level process creations, and hands downstream a globally time-sorted
// list. Matching is by minimum time delta with file order as the fixed
// tie-break; running the correlator again over its own output changes
// nothing.
package correlate

import (
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/akita-tools/akita/internal/domain"
	"github.com/akita-tools/akita/internal/extract"
	"github.com/akita-tools/akita/internal/pattern"
)

const (
	// killInfoWindow is the max delta between an lmk event and its killinfo.
	killInfoWindow = 5 * time.Second
	// amKillWindow is the max delta between an am_kill and its kill record.
	amKillWindow = 3 * time.Second
	// procStartWindow is the max delta between a process creation and the
	// foreground start it corroborates.
	procStartWindow = 10 * time.Second
	// displayedWindow is the max delta between a start and its Displayed
	// latency line.
	displayedWindow = 10 * time.Second
)

// Correlator merges raw records into the final event list.
type Correlator struct {
	log *zap.SugaredLogger
}

// New creates a Correlator. A nil logger disables diagnostics.
func New(log *zap.SugaredLogger) *Correlator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Correlator{log: log}
}

// Run performs all correlation passes and returns the merged, time-sorted
// event list. The input slices are not mutated beyond payload attachment.
func (c *Correlator) Run(raw *extract.RawResult) []*domain.LogEvent {
	events := make([]*domain.LogEvent, len(raw.Events))
	copy(events, raw.Events)

	used := c.attachKillInfo(events, raw.KillInfo)
	// Records already carried by a materialized trig event count as consumed,
	// keeping re-runs over merged output from duplicating them.
	for _, ev := range events {
		if ev.Kill != nil && ev.Kill.KillInfo != nil {
			used[ev.Kill.KillInfo] = true
		}
	}
	events = append(events, c.materializeOrphans(raw.KillInfo, used)...)
	events = c.mergeAMKill(events)
	events = c.pairProcStarts(events)
	c.attachDisplayed(events, raw.Displayed)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})
	return events
}

// attachKillInfo links each lmk event to the nearest-in-time killinfo
// record(s) sharing its pid or process name, within killInfoWindow. Returns
// the set of consumed records.
func (c *Correlator) attachKillInfo(events []*domain.LogEvent, records []*domain.KillInfoRecord) map[*domain.KillInfoRecord]bool {
	byPID := map[string][]*domain.KillInfoRecord{}
	byComm := map[string][]*domain.KillInfoRecord{}
	for _, rec := range records {
		if pid := rec.PID(); pid != "" {
			byPID[pid] = append(byPID[pid], rec)
		}
		if comm := rec.ProcessName(); comm != "" {
			byComm[comm] = append(byComm[comm], rec)
		}
	}

	used := make(map[*domain.KillInfoRecord]bool)
	for _, ev := range events {
		if ev.Kind != domain.KindLMK || ev.LMK == nil {
			continue
		}
		// Already linked on a previous pass.
		if len(ev.LMK.KillInfo) > 0 {
			for _, rec := range ev.LMK.KillInfo {
				used[rec] = true
			}
			continue
		}

		seen := make(map[*domain.KillInfoRecord]bool)
		var candidates []*domain.KillInfoRecord
		for _, rec := range append(byPID[ev.LMK.PID], byComm[ev.FullName]...) {
			if !seen[rec] {
				seen[rec] = true
				candidates = append(candidates, rec)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		minDelta := time.Duration(-1)
		for _, rec := range candidates {
			if d := absDelta(rec.Time, ev.Time); minDelta < 0 || d < minDelta {
				minDelta = d
			}
		}
		if minDelta > killInfoWindow {
			continue
		}
		for _, rec := range candidates {
			if absDelta(rec.Time, ev.Time) == minDelta {
				ev.LMK.KillInfo = append(ev.LMK.KillInfo, rec)
				used[rec] = true
			}
		}
		c.backfillLMK(ev.LMK)
	}
	return used
}

// backfillLMK fills lmk fields the kill line itself did not carry from the
// first attached killinfo record.
func (c *Correlator) backfillLMK(det *domain.LMKDetails) {
	if len(det.KillInfo) == 0 {
		return
	}
	first := det.KillInfo[0]
	if det.RSSKB == "" {
		det.RSSKB = first.Get("rss_kb")
	}
	if det.MinAdj == "" {
		det.MinAdj = first.Get("min_adj")
	}
	if det.Reason == "" || det.Reason == "unknown" {
		if r := first.Get("kill_reason"); r != "" {
			det.Reason = r
		}
	}
}

// materializeOrphans turns every unconsumed killinfo record into its own
// event so none is silently dropped: lmk when the record carries a plausible
// package name, trig otherwise.
func (c *Correlator) materializeOrphans(records []*domain.KillInfoRecord, used map[*domain.KillInfoRecord]bool) []*domain.LogEvent {
	var out []*domain.LogEvent
	for _, rec := range records {
		if used[rec] {
			continue
		}
		proc := rec.ProcessName()
		if pattern.LooksLikePackage(proc) {
			ev := domain.NewLogEvent(rec.Time, domain.KindLMK, proc, "killinfo-only: ["+rec.Payload+"]")
			ev.LMK = &domain.LMKDetails{
				PID:      rec.PID(),
				Adj:      rec.Get("adj"),
				MinAdj:   rec.Get("min_adj"),
				RSSKB:    rec.Get("rss_kb"),
				Reason:   orUnknown(rec.Get("kill_reason")),
				KillInfo: []*domain.KillInfoRecord{rec},
			}
			out = append(out, ev)
			continue
		}
		if proc == "" {
			proc = "unknown"
		}
		ev := domain.NewLogEvent(rec.Time, domain.KindTrig, proc, "killinfo-only: ["+rec.Payload+"]")
		ev.Kill = &domain.KillDetails{
			EventTag: "trig",
			Stats: domain.KillStats{
				KillType:     "trig",
				KillTypeDesc: "trig",
			},
			Proc: domain.ProcInfo{
				UID:      rec.Get("uid"),
				PID:      rec.PID(),
				Adj:      rec.Get("adj"),
				PSS:      rec.Get("rss_kb"),
				SwapUsed: rec.Get("proc_swap_kb"),
				IsMain:   "true",
				IsImp:    "false",
			},
			Mem: domain.MemInfo{
				MemFree:     rec.Get("mem_free_kb"),
				MemFile:     sumFields(rec, "active_file_kb", "inactive_file_kb"),
				MemAnon:     sumFields(rec, "active_anon_kb", "inactive_anon_kb"),
				MemSwapFree: rec.Get("swap_free_kb"),
				CMAFree:     rec.Get("cma_free_kb"),
			},
			Sources:  []string{"killinfo"},
			KillInfo: rec,
		}
		out = append(out, ev)
	}
	return out
}

// mergeAMKill folds am_kill events into the integrated kill event for the
// same death when one exists within amKillWindow; otherwise the am_kill is
// promoted to a synthetic kill so it still counts in kill statistics.
func (c *Correlator) mergeAMKill(events []*domain.LogEvent) []*domain.LogEvent {
	var kills []*domain.LogEvent
	for _, ev := range events {
		if ev.Kind == domain.KindKill && ev.Kill != nil {
			kills = append(kills, ev)
		}
	}

	out := events[:0]
	for _, ev := range events {
		if ev.Kind != domain.KindAMKill || ev.AMKill == nil {
			out = append(out, ev)
			continue
		}

		var best *domain.LogEvent
		bestDelta := time.Duration(-1)
		for _, k := range kills {
			if k.Kill.AMKill != nil {
				continue // one am_kill per kill record
			}
			pidMatch := ev.AMKill.PID != "" && k.Kill.Proc.PID != "" && ev.AMKill.PID == k.Kill.Proc.PID
			baseMatch := ev.ProcessName != "" && ev.ProcessName == k.ProcessName
			if !pidMatch && !baseMatch {
				continue
			}
			d := absDelta(k.Time, ev.Time)
			if d > amKillWindow {
				continue
			}
			if bestDelta < 0 || d < bestDelta {
				best = k
				bestDelta = d
			}
		}

		if best != nil {
			if !best.Kill.HasSource("am_kill") {
				best.Kill.Sources = append(best.Kill.Sources, "am_kill")
			}
			best.Kill.AMKill = ev.AMKill
			continue // merged, no standalone record
		}
		out = append(out, promoteAMKill(ev))
	}
	return out
}

// promoteAMKill converts an unmatched am_kill into a synthetic kill event.
func promoteAMKill(ev *domain.LogEvent) *domain.LogEvent {
	am := ev.AMKill
	isMain := "true"
	if ev.IsSubprocess {
		isMain = "false"
	}
	kill := domain.NewLogEvent(ev.Time, domain.KindKill, ev.FullName, ev.Raw)
	kill.SetSeq(ev.Seq())
	kill.Kill = &domain.KillDetails{
		EventTag: "am_kill",
		Stats: domain.KillStats{
			KillType:     "am_kill",
			KillTypeDesc: "am_kill",
			KilledCount:  "1",
			KilledPSS:    am.PSSKB,
		},
		Proc: domain.ProcInfo{
			UID:      am.UID,
			PID:      am.PID,
			Adj:      am.Adj,
			PSS:      am.PSSKB,
			Ret:      am.PSSKB,
			IsMain:   isMain,
			IsImp:    "false",
			Reason:   am.Reason,
			Priority: am.Priority,
		},
		Sources: []string{"am_kill"},
		AMKill:  am,
	}
	return kill
}

// pairProcStarts gives each foreground start its corroborating process
// creation when one exists for the same base package within
// procStartWindow. Matched creations are absorbed into the start; the rest
// stay in the list as proc_start_only events.
func (c *Correlator) pairProcStarts(events []*domain.LogEvent) []*domain.LogEvent {
	consumed := make(map[*domain.LogEvent]bool)
	for _, ev := range events {
		if ev.Kind != domain.KindStart || ev.Start == nil || ev.Start.ProcStart != nil {
			continue
		}
		var best *domain.LogEvent
		bestDelta := time.Duration(-1)
		for _, ps := range events {
			if ps.Kind != domain.KindProcStartOnly || ps.ProcStart == nil || consumed[ps] {
				continue
			}
			if ps.IsSubprocess || ps.ProcessName != ev.ProcessName {
				continue
			}
			d := absDelta(ps.Time, ev.Time)
			if d > procStartWindow {
				continue
			}
			if bestDelta < 0 || d < bestDelta {
				best = ps
				bestDelta = d
			}
		}
		if best != nil {
			ev.Start.ProcStart = best.ProcStart
			consumed[best] = true
		}
	}

	out := events[:0]
	for _, ev := range events {
		if !consumed[ev] {
			out = append(out, ev)
		}
	}
	return out
}

// attachDisplayed enriches starts with their launch latency.
func (c *Correlator) attachDisplayed(events []*domain.LogEvent, records []*extract.DisplayedRecord) {
	usedRec := make(map[*extract.DisplayedRecord]bool)
	for _, ev := range events {
		if ev.Kind != domain.KindStart || ev.Start == nil || ev.Start.DisplayedMS != 0 {
			continue
		}
		var best *extract.DisplayedRecord
		bestDelta := time.Duration(-1)
		for _, rec := range records {
			if usedRec[rec] || rec.Package != ev.ProcessName {
				continue
			}
			d := absDelta(rec.Time, ev.Time)
			if d > displayedWindow {
				continue
			}
			if bestDelta < 0 || d < bestDelta {
				best = rec
				bestDelta = d
			}
		}
		if best != nil {
			ev.Start.DisplayedMS = best.LatencyMS
			if ev.Start.Component == "" {
				ev.Start.Component = best.Component
			}
			usedRec[best] = true
		}
	}
}

func absDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// sumFields adds two numeric killinfo fields, empty when either is absent.
func sumFields(rec *domain.KillInfoRecord, a, b string) string {
	av, aerr := strconv.Atoi(rec.Get(a))
	bv, berr := strconv.Atoi(rec.Get(b))
	if aerr != nil || berr != nil {
		return ""
	}
	return strconv.Itoa(av + bv)
}
