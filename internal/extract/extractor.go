// Package extract streams a log source line by line and turns matching
// lines into raw event records. One line yields at most one record; lines
// matching nothing are ignored without error.
package extract

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/akita-tools/akita/internal/domain"
	"github.com/akita-tools/akita/internal/pattern"
)

// maxLineBytes bounds a single logcat line; vendor lines stay well below.
const maxLineBytes = 1024 * 1024

// DisplayedRecord is a parsed "Displayed" launch-latency line, used to
// enrich start events during correlation.
type DisplayedRecord struct {
	Time      time.Time
	Component string
	Package   string
	LatencyMS int
}

// RawResult is everything one scan produced, prior to correlation.
type RawResult struct {
	// Events holds start/kill/trig/skip/am_kill/lmk events plus one
	// proc_start_only event per am_proc_start line; correlation later
	// consumes the ones that corroborate a start.
	Events []*domain.LogEvent

	// KillInfo records await attachment to lmk events.
	KillInfo []*domain.KillInfoRecord

	Displayed []*DisplayedRecord

	// SkippedLines counts lines that matched a structured pattern but had a
	// malformed payload.
	SkippedLines int
}

// Extractor matches lines against the pattern registry. It is pure with
// respect to file state; the only ambient input is the clock, which supplies
// the assumed year and the fallback timestamp for unparseable ones.
type Extractor struct {
	reg   *pattern.Registry
	clock clock.Clock
	log   *zap.SugaredLogger

	// Optional inclusive time range; zero values disable the bound.
	startTime time.Time
	endTime   time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock injects the time source (tests use a mock).
func WithClock(c clock.Clock) Option {
	return func(e *Extractor) { e.clock = c }
}

// WithLogger sets the diagnostic logger for skipped lines.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Extractor) { e.log = l }
}

// WithTimeRange drops events outside [start, end]. A zero bound is open.
func WithTimeRange(start, end time.Time) Option {
	return func(e *Extractor) {
		e.startTime = start
		e.endTime = end
	}
}

// New creates an Extractor over the given registry.
func New(reg *pattern.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		reg:   reg,
		clock: clock.New(),
		log:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scan reads the source to EOF and returns the raw records. Per-line
// failures never abort the scan; only a read error is returned.
func (e *Extractor) Scan(r io.Reader) (*RawResult, error) {
	res := &RawResult{}
	year := e.clock.Now().Year()
	seq := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if ev := e.matchLine(line, year, res); ev != nil {
			ev.SetSeq(seq)
			seq++
			res.Events = append(res.Events, ev)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// matchLine tries each pattern in fixed priority order and returns the
// event for the first match, or nil. Kill-info and Displayed matches are
// recorded on res directly since they are not events themselves.
func (e *Extractor) matchLine(line string, year int, res *RawResult) *domain.LogEvent {
	if m := e.reg.LMK.FindStringSubmatch(line); m != nil {
		return e.parseLMK(line, m, year)
	}
	if m := e.reg.KillInfo.FindStringSubmatch(line); m != nil {
		e.parseKillInfo(line, m, year, res)
		return nil
	}
	if m := e.reg.AMKill.FindStringSubmatch(line); m != nil {
		return e.parseAMKill(line, m, year)
	}
	if m := e.reg.AMProcStart.FindStringSubmatch(line); m != nil {
		return e.parseProcStart(line, m, year)
	}
	if m := e.reg.Displayed.FindStringSubmatch(line); m != nil {
		e.parseDisplayed(line, m, year, res)
		return nil
	}
	if m := e.reg.WMResumed.FindStringSubmatch(line); m != nil {
		return e.parseResumed(line, m, year)
	}
	if m := e.reg.KillTriple.FindStringSubmatch(line); m != nil {
		ev, ok := e.parseKillTriple(line, m, year)
		if !ok {
			res.SkippedLines++
		}
		return ev
	}
	return nil
}

func (e *Extractor) inRange(ts time.Time) bool {
	if !e.startTime.IsZero() && ts.Before(e.startTime) {
		return false
	}
	if !e.endTime.IsZero() && ts.After(e.endTime) {
		return false
	}
	return true
}

// parseTime parses the shared timestamp prefix. Lines whose timestamp does
// not parse keep the current wall time rather than being rejected.
func (e *Extractor) parseTime(ts string, year int) time.Time {
	t, err := parseLogTime(ts, year)
	if err != nil {
		return e.clock.Now()
	}
	return t
}

func (e *Extractor) parseLMK(line string, m []string, year int) *domain.LogEvent {
	g := groups(e.reg.LMK, m)
	ts := e.parseTime(g["ts"], year)
	if !e.inRange(ts) {
		return nil
	}

	pid := g["pid"]
	if pid == "" {
		pid = g["pidalt"]
	}
	tail := g["tail"]

	det := &domain.LMKDetails{
		PID:      pid,
		Reason:   "unknown",
		Tail:     strings.TrimSpace(tail),
		KillInfo: []*domain.KillInfoRecord{},
	}
	if sm := e.reg.TailAdj.FindStringSubmatch(tail); sm != nil {
		det.Adj = sm[1]
	}
	if sm := e.reg.TailReason.FindStringSubmatch(tail); sm != nil {
		det.Reason = sm[1]
	}
	if sm := e.reg.TailRSS.FindStringSubmatch(tail); sm != nil {
		det.RSSKB = sm[1]
	}

	ev := domain.NewLogEvent(ts, domain.KindLMK, g["process"], line)
	ev.LMK = det
	return ev
}

func (e *Extractor) parseKillInfo(line string, m []string, year int, res *RawResult) {
	g := groups(e.reg.KillInfo, m)
	ts := e.parseTime(g["ts"], year)
	if !e.inRange(ts) {
		return
	}
	payload := g["payload"]
	fields, parsed, schema := e.reg.ParseKillInfoPayload(payload)
	if pattern.IsSpuriousKillInfo(fields) {
		e.log.Debugw("discarding all-numeric killinfo payload", "line", line)
		return
	}
	res.KillInfo = append(res.KillInfo, &domain.KillInfoRecord{
		Time:      ts,
		Schema:    schema,
		Payload:   payload,
		RawFields: fields,
		Fields:    parsed,
	})
}

func (e *Extractor) parseAMKill(line string, m []string, year int) *domain.LogEvent {
	g := groups(e.reg.AMKill, m)
	ts := e.parseTime(g["ts"], year)
	if !e.inRange(ts) {
		return nil
	}
	_, det := pattern.ParseAMKillPayload(g["payload"])
	// One-key cleaner sweeps are user-initiated, not memory pressure.
	if strings.EqualFold(det.Reason, "onekeyclean") {
		return nil
	}
	ev := domain.NewLogEvent(ts, domain.KindAMKill, det.ProcessName, line)
	ev.AMKill = det
	return ev
}

// parseProcStart turns an am_proc_start line into a proc_start_only event.
// Correlation later pairs it with a foreground start, which demotes it to an
// attachment on that start.
func (e *Extractor) parseProcStart(line string, m []string, year int) *domain.LogEvent {
	g := groups(e.reg.AMProcStart, m)
	ts := e.parseTime(g["ts"], year)
	if !e.inRange(ts) {
		return nil
	}
	parts := splitParts(g["payload"])
	// [user, pid, uid, process, start_type, component]
	if len(parts) < 6 {
		e.log.Debugw("am_proc_start payload too short", "line", line)
		return nil
	}
	ev := domain.NewLogEvent(ts, domain.KindProcStartOnly, parts[3], line)
	ev.ProcStart = &domain.ProcStartDetails{
		PID:       parts[1],
		UID:       parts[2],
		StartType: parts[4],
		Component: parts[5],
	}
	return ev
}

func (e *Extractor) parseDisplayed(line string, m []string, year int, res *RawResult) {
	g := groups(e.reg.Displayed, m)
	ts := e.parseTime(g["ts"], year)
	if !e.inRange(ts) {
		return
	}
	component := g["component"]
	pkg := component
	if i := strings.IndexByte(pkg, '/'); i >= 0 {
		pkg = pkg[:i]
	}
	res.Displayed = append(res.Displayed, &DisplayedRecord{
		Time:      ts,
		Component: component,
		Package:   pkg,
		LatencyMS: parseLatencyMS(g["latency"]),
	})
}

// parseResumed turns a wm_set_resumed_activity line into a start event.
// Payload: [user, component, reason...]
func (e *Extractor) parseResumed(line string, m []string, year int) *domain.LogEvent {
	g := groups(e.reg.WMResumed, m)
	ts := e.parseTime(g["ts"], year)
	if !e.inRange(ts) {
		return nil
	}
	parts := splitParts(g["payload"])
	if len(parts) < 2 {
		e.log.Debugw("wm_set_resumed_activity payload too short", "line", line)
		return nil
	}
	component := parts[1]
	pkg := component
	if i := strings.IndexByte(pkg, '/'); i >= 0 {
		pkg = pkg[:i]
	}
	ev := domain.NewLogEvent(ts, domain.KindStart, pkg, line)
	ev.Start = &domain.StartDetails{Component: component}
	return ev
}

// parseKillTriple handles the bracketed kill/trig/skip triple. Returns
// ok=false when the payload had too few sub-fields.
func (e *Extractor) parseKillTriple(line string, m []string, year int) (*domain.LogEvent, bool) {
	g := groups(e.reg.KillTriple, m)

	head := strings.Split(g["head"], "|")
	proc := strings.Split(g["proc"], "|")
	mem := strings.Split(g["mem"], "|")

	tag := head[0]
	var kind domain.EventKind
	switch {
	case strings.HasPrefix(strings.ToLower(tag), "kill"):
		kind = domain.KindKill
	case strings.HasPrefix(strings.ToLower(tag), "trig"):
		kind = domain.KindTrig
	case strings.HasPrefix(strings.ToLower(tag), "skip"):
		kind = domain.KindSkip
	default:
		return nil, true
	}

	if len(head) < 11 || len(proc) < 10 || len(mem) < 6 {
		e.log.Warnw("kill line has too few fields", "line", line)
		return nil, false
	}

	ts := e.parseTime(g["ts"], year)
	if !e.inRange(ts) {
		return nil, true
	}

	// Some builds fill absent numeric fields with -1; normalize to empty.
	norm := func(vs []string) []string {
		out := make([]string, len(vs))
		for i, v := range vs {
			if v == "-1" || v == "None" {
				v = ""
			}
			out[i] = v
		}
		return out
	}
	proc = norm(proc)
	mem = norm(mem)

	ev := domain.NewLogEvent(ts, kind, proc[0], line)
	ev.Kill = &domain.KillDetails{
		EventTag: tag,
		Stats: domain.KillStats{
			KillType:          head[1],
			KillTypeDesc:      e.reg.DescribeKillType(head[1]),
			MinScore:          head[2],
			MinScoreDesc:      e.reg.DescribeMinScore(head[2]),
			KillableProcCount: head[3],
			ImportantAppCount: head[4],
			KilledCount:       head[5],
			KilledImpCount:    head[6],
			SkipCount:         head[7],
			TargetMem:         head[8],
			TargetReleaseMem:  head[9],
			KilledPSS:         head[10],
		},
		Proc: domain.ProcInfo{
			UID:      proc[1],
			PID:      proc[2],
			Adj:      proc[3],
			Score:    proc[4],
			PSS:      proc[5],
			SwapUsed: proc[6],
			Ret:      proc[7],
			IsMain:   proc[8],
			IsImp:    proc[9],
		},
		Mem: domain.MemInfo{
			MemFree:     mem[0],
			MemAvail:    mem[1],
			MemFile:     mem[2],
			MemAnon:     mem[3],
			MemSwapFree: mem[4],
			CMAFree:     mem[5],
		},
		Sources: []string{"kill"},
	}
	return ev, true
}

// groups maps named capture groups of a match.
func groups(re *regexp.Regexp, m []string) map[string]string {
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(m) {
			out[name] = m[i]
		}
	}
	return out
}

func splitParts(payload string) []string {
	parts := strings.Split(payload, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
