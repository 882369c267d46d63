package domain

// StartVerdict says whether a foreground start created a new process.
type StartVerdict string

const (
	VerdictCold StartVerdict = "cold"
	VerdictHot  StartVerdict = "hot"
)

// ClassifiedEvent wraps a start LogEvent with the classifier's verdict. The
// wrapped event is shared with other consumers and must not be mutated.
type ClassifiedEvent struct {
	Event   *LogEvent    `json:"event"`
	Verdict StartVerdict `json:"verdict"`

	// Slot is the index into the expected apps x rounds sequence, -1 when no
	// sequence is configured or the start is anomalous. Round is 1-based.
	Slot  int `json:"slot"`
	Round int `json:"round"`

	// Occurrence counts starts of this package within the run (1-based),
	// the fallback numbering when no expected sequence is configured.
	Occurrence int `json:"occurrence"`

	// Anomaly marks a start that did not match the pending expected slot;
	// anomalous starts are excluded from round and residency accounting.
	Anomaly     bool   `json:"anomaly,omitempty"`
	AnomalyNote string `json:"anomaly_note,omitempty"`
}
