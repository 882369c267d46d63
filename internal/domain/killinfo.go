package domain

import "time"

// KillInfoSchema tags which field layout a killinfo payload used. The
// variant is selected once per payload by field count and never re-guessed.
type KillInfoSchema string

const (
	// SchemaLegacy is the historical ~41-field layout.
	SchemaLegacy KillInfoSchema = "legacy"
	// SchemaCompact is the 19-field layout carrying only the core metrics.
	SchemaCompact KillInfoSchema = "compact"
)

// KillInfoRecord is one parsed killinfo payload. Records live only until
// correlation; afterwards they are either attached to an lmk event or
// materialized as their own lmk/trig event.
type KillInfoRecord struct {
	Time      time.Time         `json:"time"`
	Schema    KillInfoSchema    `json:"schema"`
	Payload   string            `json:"payload"`
	RawFields []string          `json:"raw_fields"`
	Fields    map[string]string `json:"fields"`
}

// Get returns a named field, empty string when absent.
func (r *KillInfoRecord) Get(key string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// PID returns the victim pid when one was recognized in the payload.
func (r *KillInfoRecord) PID() string { return r.Get("pid") }

// ProcessName returns the victim process name when one was recognized.
func (r *KillInfoRecord) ProcessName() string { return r.Get("process_name") }
