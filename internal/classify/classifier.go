// Package classify walks the merged, time-ordered event list once and
// assigns every tracked foreground start a cold/hot verdict and a slot in
// the expected round-robin startup sequence.
package classify

import (
	"go.uber.org/zap"

	"github.com/akita-tools/akita/internal/domain"
)

// AnomalyNote marks a start that arrived while a different package was
// pending at the sequence cursor.
const AnomalyNote = "possible_anomaly_start"

// Options configure one classification run.
type Options struct {
	// Expected is the ordered tracked-package list; empty tracks every
	// package and falls back to per-package occurrence numbering.
	Expected []string

	// Rounds is how many times Expected repeats; defaults to 2.
	Rounds int

	// StrictPIDMatch requires a kill record's pid to equal the pid of the
	// package's last observed start before the instance counts as killed.
	// Off by default: base-name equality is treated as sufficient evidence
	// of death, which can misattribute a kill of a stale secondary process.
	StrictPIDMatch bool
}

func (o Options) rounds() int {
	if o.Rounds <= 0 {
		return 2
	}
	return o.Rounds
}

// trackState is the per-package tracking state, created on first observed
// start and discarded when the run returns.
type trackState struct {
	seen            bool
	lastStartPID    string
	lastStartKilled bool
	launchCount     int
}

// Classifier is the per-run state machine. Not safe for reuse; build a new
// one per event list.
type Classifier struct {
	opts    Options
	log     *zap.SugaredLogger
	tracked map[string]bool
}

// New creates a Classifier for the given options.
func New(opts Options, log *zap.SugaredLogger) *Classifier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &Classifier{opts: opts, log: log}
	if len(opts.Expected) > 0 {
		c.tracked = make(map[string]bool, len(opts.Expected))
		for _, pkg := range opts.Expected {
			c.tracked[pkg] = true
		}
	}
	return c
}

// isTracked reports whether the classifier cares about a package. With no
// expected list every package is tracked.
func (c *Classifier) isTracked(pkg string) bool {
	if c.tracked == nil {
		return true
	}
	return c.tracked[pkg]
}

// Run classifies every tracked, non-subprocess start event. The input must
// already be fully merged and globally time-sorted; events are read, never
// mutated.
func (c *Classifier) Run(events []*domain.LogEvent) []*domain.ClassifiedEvent {
	states := make(map[string]*trackState)
	stateFor := func(pkg string) *trackState {
		st, ok := states[pkg]
		if !ok {
			st = &trackState{}
			states[pkg] = st
		}
		return st
	}

	expectedSlots := len(c.opts.Expected) * c.opts.rounds()
	cursor := 0

	var out []*domain.ClassifiedEvent
	for _, ev := range events {
		switch ev.Kind {
		case domain.KindKill, domain.KindLMK:
			if !c.isTracked(ev.ProcessName) {
				continue
			}
			st := stateFor(ev.ProcessName)
			if !st.seen {
				continue
			}
			if c.opts.StrictPIDMatch {
				pid := killPID(ev)
				if pid == "" || st.lastStartPID == "" || pid != st.lastStartPID {
					continue
				}
			}
			st.lastStartKilled = true

		case domain.KindStart:
			if ev.IsSubprocess || ev.Start == nil || !c.isTracked(ev.ProcessName) {
				continue
			}
			st := stateFor(ev.ProcessName)

			verdict := domain.VerdictHot
			switch {
			case ev.Start.ProcStart != nil:
				verdict = domain.VerdictCold
			case st.seen && st.lastStartKilled:
				verdict = domain.VerdictCold
			}

			ce := &domain.ClassifiedEvent{
				Event:   ev,
				Verdict: verdict,
				Slot:    -1,
			}
			st.launchCount++
			ce.Occurrence = st.launchCount

			if len(c.opts.Expected) > 0 {
				if cursor < expectedSlots && ev.ProcessName == c.opts.Expected[cursor%len(c.opts.Expected)] {
					ce.Slot = cursor
					ce.Round = cursor/len(c.opts.Expected) + 1
					cursor++
				} else {
					// The cursor stays put so a later correctly-ordered
					// start can still fill the pending slot.
					ce.Anomaly = true
					ce.AnomalyNote = AnomalyNote
					c.log.Debugw("out-of-sequence start",
						"package", ev.ProcessName,
						"cursor", cursor,
					)
				}
			} else {
				ce.Round = st.launchCount
			}

			st.seen = true
			st.lastStartKilled = false
			st.lastStartPID = ""
			if ev.Start.ProcStart != nil {
				st.lastStartPID = ev.Start.ProcStart.PID
			}
			out = append(out, ce)
		}
	}
	return out
}

// killPID extracts the victim pid of a kill or lmk event.
func killPID(ev *domain.LogEvent) string {
	switch ev.Kind {
	case domain.KindLMK:
		if ev.LMK != nil {
			return ev.LMK.PID
		}
	case domain.KindKill:
		if ev.Kill != nil {
			return ev.Kill.Proc.PID
		}
	}
	return ""
}
