package domain

import (
	"strings"
	"time"
)

// EventKind identifies what a log line described
type EventKind string

const (
	KindStart         EventKind = "start"           // foreground app start
	KindKill          EventKind = "kill"            // integrated kill record
	KindLMK           EventKind = "lmk"             // low-memory-killer kill
	KindTrig          EventKind = "trig"            // kill trigger with no resolvable victim
	KindSkip          EventKind = "skip"            // kill skipped by policy
	KindAMKill        EventKind = "am_kill"         // activity-manager kill record
	KindProcStartOnly EventKind = "proc_start_only" // process creation with no matching app start
)

// LogEvent is the canonical unit produced by the engine. Events handed
// downstream are always sorted ascending by Time; ties keep discovery order.
type LogEvent struct {
	Time         time.Time `json:"time"`
	Kind         EventKind `json:"kind"`
	ProcessName  string    `json:"process_name"` // base package name
	FullName     string    `json:"full_name"`    // may carry a :suffix for secondary processes
	IsSubprocess bool      `json:"is_subprocess"`
	Raw          string    `json:"raw,omitempty"`

	// seq is the discovery order within one run, used as a stable tie-break.
	seq int

	// Kind-specific payloads; exactly one is set for kill/lmk/am_kill/start,
	// trig and skip reuse the kill payload shape.
	Start     *StartDetails     `json:"start,omitempty"`
	Kill      *KillDetails      `json:"kill,omitempty"`
	LMK       *LMKDetails       `json:"lmk,omitempty"`
	AMKill    *AMKillDetails    `json:"am_kill,omitempty"`
	ProcStart *ProcStartDetails `json:"proc_start,omitempty"`
}

// NewLogEvent builds an event for a process label, deriving the base package
// name and the subprocess flag from the presence of a ':' suffix.
func NewLogEvent(ts time.Time, kind EventKind, fullName, raw string) *LogEvent {
	return &LogEvent{
		Time:         ts,
		Kind:         kind,
		ProcessName:  BasePackage(fullName),
		FullName:     fullName,
		IsSubprocess: strings.Contains(fullName, ":"),
		Raw:          raw,
	}
}

// Seq returns the discovery order of the event within its run.
func (e *LogEvent) Seq() int { return e.seq }

// SetSeq is called once by the extractor; later stages must not renumber.
func (e *LogEvent) SetSeq(n int) { e.seq = n }

// BasePackage strips a secondary-process suffix ("com.app:push" -> "com.app").
func BasePackage(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

// StartDetails carries the payload of a foreground start event.
type StartDetails struct {
	Component   string `json:"component,omitempty"`
	DisplayedMS int    `json:"displayed_ms,omitempty"` // launch latency when a Displayed line matched

	// Matched low-level process creation, nil for starts that reused a
	// resident process.
	ProcStart *ProcStartDetails `json:"proc_start,omitempty"`
}

// ProcStartDetails is the payload of an am_proc_start record.
type ProcStartDetails struct {
	PID       string `json:"pid"`
	UID       string `json:"uid"`
	StartType string `json:"start_type"`
	Component string `json:"component"`
}

// KillStats is the first bracket group of an integrated kill/trig/skip line.
type KillStats struct {
	KillType          string `json:"kill_type"`
	KillTypeDesc      string `json:"kill_type_desc"`
	MinScore          string `json:"min_score"`
	MinScoreDesc      string `json:"min_score_desc"`
	KillableProcCount string `json:"killable_proc_count"`
	ImportantAppCount string `json:"important_app_count"`
	KilledCount       string `json:"killed_count"`
	KilledImpCount    string `json:"killed_imp_count"`
	SkipCount         string `json:"skip_count"`
	TargetMem         string `json:"target_mem"`
	TargetReleaseMem  string `json:"target_release_mem"`
	KilledPSS         string `json:"killed_pss"`
}

// ProcInfo is the victim-process bracket group of an integrated kill line.
type ProcInfo struct {
	UID      string `json:"uid"`
	PID      string `json:"pid"`
	Adj      string `json:"adj"`
	Score    string `json:"score"`
	PSS      string `json:"pss"`
	SwapUsed string `json:"swap_used"`
	Ret      string `json:"ret"`
	IsMain   string `json:"is_main"`
	IsImp    string `json:"is_imp"`
	Reason   string `json:"reason,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// MemInfo is the system-memory snapshot bracket group of an integrated kill
// line, all values in kB. Empty string means the field was absent or -1.
type MemInfo struct {
	MemFree     string `json:"mem_free"`
	MemAvail    string `json:"mem_avail"`
	MemFile     string `json:"mem_file"`
	MemAnon     string `json:"mem_anon"`
	MemSwapFree string `json:"mem_swap_free"`
	CMAFree     string `json:"cma_free"`
}

// KillDetails is the payload of kill, trig and skip events.
type KillDetails struct {
	EventTag string    `json:"event_tag"`
	Stats    KillStats `json:"kill_info"`
	Proc     ProcInfo  `json:"proc_info"`
	Mem      MemInfo   `json:"mem_info"`

	// Sources lists the record kinds merged into this event ("kill",
	// "am_kill"); AMKill holds the merged activity-manager payload.
	Sources []string       `json:"sources,omitempty"`
	AMKill  *AMKillDetails `json:"am_kill,omitempty"`

	// KillInfo is set on trig events materialized from an orphan killinfo
	// record, preserving the source payload.
	KillInfo *KillInfoRecord `json:"killinfo,omitempty"`
}

// HasSource reports whether the given record kind was merged in.
func (d *KillDetails) HasSource(name string) bool {
	for _, s := range d.Sources {
		if s == name {
			return true
		}
	}
	return false
}

// AMKillDetails is the payload of an am_kill record.
type AMKillDetails struct {
	UID         string   `json:"uid"`
	PID         string   `json:"pid"`
	ProcessName string   `json:"process_name"`
	Adj         string   `json:"adj"`
	Reason      string   `json:"reason"`
	PSSKB       string   `json:"pss_kb"`
	Priority    string   `json:"priority"`
	RawFields   []string `json:"raw_fields,omitempty"`
}

// LMKDetails is the payload of a lowmemorykiller event.
type LMKDetails struct {
	PID    string `json:"pid"`
	Adj    string `json:"adj"`
	MinAdj string `json:"min_adj"`
	RSSKB  string `json:"rss_kb"`
	Reason string `json:"reason"`
	Tail   string `json:"tail,omitempty"`

	// KillInfo records matched within the attachment window, possibly empty.
	KillInfo []*KillInfoRecord `json:"killinfo"`
}
