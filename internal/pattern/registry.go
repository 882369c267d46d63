// Package pattern holds the compiled line matchers and lookup tables the
// extractor uses to recognize kernel/system log lines.
package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/akita-tools/akita/internal/domain"
)

// Timestamp prefix shared by all line kinds: month-day hour:min:sec[.millis],
// year implied by the capture session.
const tsPrefix = `(?P<ts>\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d+)?)`

var defaultPatterns = map[string]string{
	"lmk": `(?i)` + tsPrefix +
		`.*?lowmemorykiller:\s*(?:Kill|Killing)\s*['"]?(?P<process>[^\s'"(]+)['"]?` +
		`\s*(?:\((?:pid\s*)?(?P<pid>\d+)[^)]*\)|pid\s*(?P<pidalt>\d+))?(?P<tail>.*)`,
	"killinfo": tsPrefix + `.*?killinfo:\s*\[(?P<payload>[^\]]+)\]`,
	"am_kill":  `(?i)` + tsPrefix + `.*?am_kill\s*:\s*\[(?P<payload>[^\]]+)\]`,
	"am_proc_start": tsPrefix +
		`.*?am_proc_start:\s*\[(?P<payload>[^\]]+)\]`,
	"displayed": tsPrefix +
		`.*?Displayed\s+(?P<component>[^\s:]+):\s*\+(?P<latency>\S+)`,
	"wm_resumed": tsPrefix +
		`.*?wm_set_resumed_activity:\s*\[(?P<payload>[^\]]+)\]`,
	// Generic bracketed kill/trig/skip triple. The first segment must start
	// with one of the tags so noise like "spckill" never matches.
	"kill_triple": tsPrefix +
		`.*?\[(?P<head>[Kk]ill[^\]]*|[Tt]rig[^\]]*|[Ss]kip[^\]]*)\]\s*\[(?P<proc>[^\]]+)\]\s*\[(?P<mem>[^\]]+)\]`,
}

// defaultKillTypeMap maps integrated kill-type codes to their enum names.
var defaultKillTypeMap = map[string]string{
	"0": "NPW",
	"1": "EPW",
	"2": "CPW",
	"3": "LAUNCH",
	"4": "SUB_PROC",
	"5": "INVALID",
}

// defaultMinScoreMap maps minScore factor values to their enum names.
var defaultMinScoreMap = map[int64]string{
	-1073741824: "MAIN_PROC_FACTOR | SUB_MIN_SCORE",
	-536870912:  "LOWADJ_PROC_FACTOR",
	-268435456:  "FORCE_PROTECT_PROC_FACTOR",
	-134217728:  "LOCKED_PROC_FACTOR",
	-67108864:   "RECENT_PROC_FACTOR",
	-33554432:   "IMPORTANT_PROC_FACTOR",
	-1342177280: "RECENT_MIN_SCORE",
	-1140850688: "IMPORTANT_MIN_SCORE",
	-1107296256: "NORMAL_MIN_SCORE",
}

// legacyKillInfoFields is the historical full killinfo layout. Index 0 and 1
// carry pid/comm in either order; disambiguation happens after mapping.
var legacyKillInfoFields = []string{
	"pid_or_comm", "pid_or_comm", "uid", "adj", "min_adj", "rss_kb",
	"kill_reason", "mem_total_kb", "mem_free_kb", "cached_kb",
	"swap_cached_kb", "buffers_kb", "shmem_kb", "unevictable_kb",
	"swap_total_kb", "swap_free_kb", "active_anon_kb", "inactive_anon_kb",
	"active_file_kb", "inactive_file_kb", "k_reclaimable_kb",
	"s_reclaimable_kb", "s_unreclaim_kb", "kernel_stack_kb",
	"page_tables_kb", "ion_heap_kb", "ion_heap_pool_kb", "cma_free_kb",
	"pressure_since_event_ms", "since_wakeup_ms", "wakeups_since_event",
	"skipped_wakeups", "proc_swap_kb", "gpu_kb", "thrashing",
	"max_thrashing", "psi_mem_some", "psi_mem_full", "psi_io_some",
	"psi_io_full", "psi_cpu_some",
}

// compactKillInfoFields is the 19-field layout carrying the core metrics.
var compactKillInfoFields = []string{
	"pid_or_comm", "pid_or_comm", "uid", "adj", "min_adj", "rss_kb",
	"proc_swap_kb", "kill_reason", "mem_total_kb", "mem_free_kb",
	"cached_kb", "swap_free_kb", "thrashing", "max_thrashing",
	"psi_mem_some", "psi_mem_full", "psi_io_some", "psi_io_full",
	"psi_cpu_some",
}

// Overrides lets configuration replace individual patterns or tables
// without touching the rest of the defaults.
type Overrides struct {
	Patterns      map[string]string
	KillTypeMap   map[string]string
	MinScoreMap   map[int64]string
	LegacyFields  []string
	CompactFields []string
}

// Registry holds the compiled matchers and lookup tables for one run.
type Registry struct {
	LMK         *regexp.Regexp
	KillInfo    *regexp.Regexp
	AMKill      *regexp.Regexp
	AMProcStart *regexp.Regexp
	Displayed   *regexp.Regexp
	WMResumed   *regexp.Regexp
	KillTriple  *regexp.Regexp

	// Sub-matchers for the free-text tail of an LMK line.
	TailAdj    *regexp.Regexp
	TailReason *regexp.Regexp
	TailRSS    *regexp.Regexp

	killTypeMap   map[string]string
	minScoreMap   map[int64]string
	legacyFields  []string
	compactFields []string
}

// NewRegistry compiles the default matchers, applying any overrides.
func NewRegistry(ov *Overrides) (*Registry, error) {
	pick := func(name string) string {
		if ov != nil {
			if p, ok := ov.Patterns[name]; ok && p != "" {
				return p
			}
		}
		return defaultPatterns[name]
	}

	r := &Registry{
		killTypeMap:   defaultKillTypeMap,
		minScoreMap:   defaultMinScoreMap,
		legacyFields:  legacyKillInfoFields,
		compactFields: compactKillInfoFields,
	}
	if ov != nil {
		if len(ov.KillTypeMap) > 0 {
			r.killTypeMap = ov.KillTypeMap
		}
		if len(ov.MinScoreMap) > 0 {
			r.minScoreMap = ov.MinScoreMap
		}
		if len(ov.LegacyFields) > 0 {
			r.legacyFields = ov.LegacyFields
		}
		if len(ov.CompactFields) > 0 {
			r.compactFields = ov.CompactFields
		}
	}

	var err error
	compile := func(name string) *regexp.Regexp {
		if err != nil {
			return nil
		}
		re, cerr := regexp.Compile(pick(name))
		if cerr != nil {
			err = fmt.Errorf("pattern %q: %w", name, cerr)
		}
		return re
	}

	r.LMK = compile("lmk")
	r.KillInfo = compile("killinfo")
	r.AMKill = compile("am_kill")
	r.AMProcStart = compile("am_proc_start")
	r.Displayed = compile("displayed")
	r.WMResumed = compile("wm_resumed")
	r.KillTriple = compile("kill_triple")
	if err != nil {
		return nil, err
	}

	r.TailAdj = regexp.MustCompile(`(?:adj|oom_score_adj)\s*(-?\d+)`)
	r.TailReason = regexp.MustCompile(`(?:reason|kill_reason)\s+([A-Za-z0-9_-]+)`)
	r.TailRSS = regexp.MustCompile(`to free\s+(\d+)kB`)
	return r, nil
}

// DescribeKillType maps a kill-type code to its enum name.
func (r *Registry) DescribeKillType(code string) string {
	if desc, ok := r.killTypeMap[code]; ok {
		return desc
	}
	return fmt.Sprintf("unknown(%s)", code)
}

// DescribeMinScore maps a minScore value to its enum name. Values that are
// not integers or not in the table come back unchanged.
func (r *Registry) DescribeMinScore(value string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return value
	}
	if desc, ok := r.minScoreMap[n]; ok {
		return desc
	}
	return fmt.Sprintf("unknown(%d)", n)
}

// SelectSchema picks the killinfo layout by field count. Counts at or just
// above the compact length lean compact; anything larger is legacy.
func (r *Registry) SelectSchema(fieldCount int) domain.KillInfoSchema {
	if fieldCount <= len(r.compactFields)+1 {
		return domain.SchemaCompact
	}
	return domain.SchemaLegacy
}

// fieldsFor returns the index->name mapping of a schema.
func (r *Registry) fieldsFor(schema domain.KillInfoSchema) []string {
	if schema == domain.SchemaCompact {
		return r.compactFields
	}
	return r.legacyFields
}

// IsSpuriousKillInfo reports whether a payload is all-numeric with no
// recognizable process name, which indicates a truncated or garbled line.
func IsSpuriousKillInfo(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !isDigits(f) {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// LooksLikePackage reports whether a name is a plausible application
// package. Vendor payloads always use the com. prefix.
func LooksLikePackage(name string) bool {
	return strings.HasPrefix(name, "com.")
}

// ParseKillInfoPayload splits a killinfo payload and maps its fields by the
// auto-selected schema. The first two positions carry pid and comm in either
// order; both are normalized into "pid" / "process_name".
func (r *Registry) ParseKillInfoPayload(payload string) ([]string, map[string]string, domain.KillInfoSchema) {
	fields := splitCSV(payload)
	schema := r.SelectSchema(len(fields))
	names := r.fieldsFor(schema)

	parsed := make(map[string]string, len(fields))
	for i, v := range fields {
		if i < len(names) && names[i] != "pid_or_comm" {
			parsed[names[i]] = v
		} else if i >= len(names) {
			parsed[fmt.Sprintf("field_%d", i)] = v
		}
	}
	if len(fields) > 0 {
		if isDigits(fields[0]) {
			parsed["pid"] = fields[0]
			if len(fields) > 1 {
				parsed["process_name"] = fields[1]
			}
		} else {
			parsed["process_name"] = fields[0]
			if len(fields) > 1 && isDigits(fields[1]) {
				parsed["pid"] = fields[1]
			}
		}
	}
	return fields, parsed, schema
}

// ParseAMKillPayload splits an am_kill payload:
// [uid, pid, process, adj, reason, pss]
func ParseAMKillPayload(payload string) ([]string, *domain.AMKillDetails) {
	fields := splitCSV(payload)
	at := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return fields, &domain.AMKillDetails{
		UID:         at(0),
		PID:         at(1),
		ProcessName: at(2),
		Adj:         at(3),
		Reason:      at(4),
		PSSKB:       at(5),
		Priority:    at(3),
		RawFields:   fields,
	}
}

func splitCSV(payload string) []string {
	parts := strings.Split(payload, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
