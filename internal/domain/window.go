package domain

import "time"

// Confidence tiers for a detected startup window.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// WindowResult is the outcome of the startup-window alignment search.
// Detected=false is the explicit "not found" result; callers must handle it.
type WindowResult struct {
	Detected bool `json:"detected"`

	Start time.Time `json:"window_start,omitempty"`
	End   time.Time `json:"window_end,omitempty"`

	// MatchScore is matched/expected in percent.
	MatchScore    float64 `json:"match_score"`
	MatchedCount  int     `json:"matched_start_count"`
	ExpectedCount int     `json:"expected_count"`
	ObservedCount int     `json:"observed_count"`
	MismatchCount int     `json:"mismatch_count"`
	Tolerance     int     `json:"tolerance"`

	DurationSec float64    `json:"duration_sec"`
	TailGapSec  float64    `json:"tail_gap_sec"` // gap between window end and end of log
	Confidence  Confidence `json:"confidence,omitempty"`

	FileEnd time.Time `json:"file_end_time,omitempty"`
}
