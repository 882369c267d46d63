// Package session reconstructs per-package resident spans from the merged
// event timeline: each start opens a session, the next kill or lmk for the
// same package closes it.
package session

import (
	"sort"
	"time"

	"github.com/akita-tools/akita/internal/domain"
)

// Tracker folds the event stream into process sessions. Feed events in
// timeline order; Sessions returns the accumulated spans.
type Tracker struct {
	open     map[string]*domain.ProcessSession
	ordinals map[string]int
	sessions []*domain.ProcessSession
	lastSeen time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		open:     make(map[string]*domain.ProcessSession),
		ordinals: make(map[string]int),
	}
}

// Observe processes one event. Subprocess starts are ignored; a package's
// subprocesses live and die with the main process for residency purposes.
func (t *Tracker) Observe(ev *domain.LogEvent) {
	if ev.Time.After(t.lastSeen) {
		t.lastSeen = ev.Time
	}

	switch ev.Kind {
	case domain.KindStart:
		if ev.IsSubprocess {
			return
		}
		t.openSession(ev)
	case domain.KindKill, domain.KindLMK:
		t.closeSession(ev)
	}
}

func (t *Tracker) openSession(ev *domain.LogEvent) {
	pkg := ev.ProcessName

	// A start while a session is open means the kill was never logged;
	// close the old span at the relaunch instant.
	if prev, ok := t.open[pkg]; ok {
		end := ev.Time
		prev.End = &end
		delete(t.open, pkg)
	}

	t.ordinals[pkg]++
	s := &domain.ProcessSession{
		Session: t.ordinals[pkg],
		Package: pkg,
		Start:   ev.Time,
	}
	if ev.Start != nil && ev.Start.ProcStart != nil {
		s.PID = ev.Start.ProcStart.PID
	}
	if s.Session > 1 {
		s.Relaunch = true
	}
	t.open[pkg] = s
	t.sessions = append(t.sessions, s)
}

func (t *Tracker) closeSession(ev *domain.LogEvent) {
	s, ok := t.open[ev.ProcessName]
	if !ok {
		return
	}
	end := ev.Time
	s.End = &end
	s.EndedBy = ev.Kind
	s.EndReason = killReason(ev)
	delete(t.open, ev.ProcessName)
}

func killReason(ev *domain.LogEvent) string {
	switch ev.Kind {
	case domain.KindLMK:
		if ev.LMK != nil {
			return ev.LMK.Reason
		}
	case domain.KindKill:
		if ev.Kill != nil {
			if ev.Kill.Proc.Reason != "" {
				return ev.Kill.Proc.Reason
			}
			return ev.Kill.Stats.KillTypeDesc
		}
	}
	return ""
}

// Sessions returns all spans in start order. Open sessions have no End.
func (t *Tracker) Sessions() []*domain.ProcessSession {
	out := append([]*domain.ProcessSession(nil), t.sessions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// LogEnd returns the latest event time observed, the measuring point for
// still-open sessions.
func (t *Tracker) LogEnd() time.Time { return t.lastSeen }

// Build runs a tracker over a complete timeline.
func Build(events []*domain.LogEvent) []*domain.ProcessSession {
	t := NewTracker()
	for _, ev := range events {
		t.Observe(ev)
	}
	return t.Sessions()
}
