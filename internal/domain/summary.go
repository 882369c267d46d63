package domain

// PackageTally counts events per base package name.
type PackageTally struct {
	Start int `json:"start"`
	Kill  int `json:"kill"`
	LMK   int `json:"lmk"`
	Skip  int `json:"skip"`
}

// Distribution describes one memory metric over all events that carried it.
// Count==0 means no event had a usable value; the other fields are then zero.
type Distribution struct {
	Count  int     `json:"count"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// MemoryStats aggregates system-memory snapshots taken at kill time.
type MemoryStats struct {
	MemFree   Distribution `json:"mem_free"`
	FilePages Distribution `json:"file_pages"`
	AnonPages Distribution `json:"anon_pages"`
	SwapFree  Distribution `json:"swap_free"`
}

// Summary is the engine's aggregate view of one analysis run.
type Summary struct {
	TotalEvents int `json:"total_events"`

	StartCount         int `json:"start_count"`
	KillCount          int `json:"kill_count"`
	LMKCount           int `json:"lmk_count"`
	TrigCount          int `json:"trig_count"`
	SkipCount          int `json:"skip_count"`
	ProcStartOnlyCount int `json:"proc_start_only_count"`

	SubprocessStartCount int `json:"subprocess_start_count"`

	// PerPackage is keyed by base package name.
	PerPackage map[string]*PackageTally `json:"per_package"`

	Memory MemoryStats `json:"memory"`
}
