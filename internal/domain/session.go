package domain

import "time"

// ProcessSession is one resident span of a package: from a start event until
// the kill that ended it, or until the end of the log when no kill was seen.
type ProcessSession struct {
	Session int    `json:"session"` // per-package ordinal, 1-based
	Package string `json:"package"`
	PID     string `json:"pid,omitempty"`

	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`

	// EndedBy names the event kind that closed the session ("kill", "lmk"),
	// empty while the process is still resident at end of log.
	EndedBy EventKind `json:"ended_by,omitempty"`

	// EndReason carries the killer's reason string when one was recorded.
	EndReason string `json:"end_reason,omitempty"`

	// Relaunch marks sessions opened while a previous session of the same
	// package had not been observed to die; the old session is closed at the
	// relaunch instant.
	Relaunch bool `json:"relaunch,omitempty"`
}

// Closed reports whether the session has a recorded end.
func (s *ProcessSession) Closed() bool { return s.End != nil }

// Duration returns the session's lifetime; open sessions measure up to the
// supplied log-end time.
func (s *ProcessSession) Duration(logEnd time.Time) time.Duration {
	if s.End != nil {
		return s.End.Sub(s.Start)
	}
	if logEnd.After(s.Start) {
		return logEnd.Sub(s.Start)
	}
	return 0
}
