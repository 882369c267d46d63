package domain

import "time"

// ResidencyWindowMax is how many preceding starts a residency row looks
// back over at most.
const ResidencyWindowMax = 5

// WindowRate is the alive/total tally of one look-back window.
type WindowRate struct {
	Alive int      `json:"alive"`
	Total int      `json:"total"`
	Live  []string `json:"live,omitempty"` // packages still alive in the window
}

// Percent returns the alive ratio in percent, 0 for an empty window.
func (w WindowRate) Percent() float64 {
	if w.Total == 0 {
		return 0
	}
	return float64(w.Alive) / float64(w.Total) * 100
}

// ResidencyRecord is one row of the residency table: for the i-th qualifying
// tracked start, how many of the preceding starts were still alive.
type ResidencyRecord struct {
	Seq     int       `json:"seq"` // 1-based position among qualifying starts
	Package string    `json:"package"`
	Time    time.Time `json:"time"`

	// PerWindow holds the tallies for look-back windows 1..ResidencyWindowMax.
	PerWindow map[int]WindowRate `json:"per_window"`

	// All covers every preceding qualifying start, not just the last few.
	All        WindowRate `json:"all"`
	AliveList  []string   `json:"alive_list"`
	KilledList []string   `json:"killed_list"`
}

// HeatmapCell is the survival state of one package at one canonical slot.
type HeatmapCell int8

const (
	CellDead  HeatmapCell = 0 // killed before this slot's start
	CellAlive HeatmapCell = 1 // resident in background
	CellSelf  HeatmapCell = 2 // alive and is this slot's package
)

// HeatmapSlot is one column of the grid: a package at a given round.
type HeatmapSlot struct {
	Package string `json:"package"`
	Round   int    `json:"round"` // 1-based
	// Missing marks slots with no matching observed start; the column is
	// rendered distinctly but never aborts grid construction.
	Missing bool      `json:"missing,omitempty"`
	Time    time.Time `json:"time,omitempty"`
}

// Heatmap is the fixed packages x (rounds*packages) survival grid.
type Heatmap struct {
	Packages []string      `json:"packages"`
	Slots    []HeatmapSlot `json:"slots"`

	// Cells is indexed [package][slot].
	Cells [][]HeatmapCell `json:"cells"`

	// RowAlive counts alive cells per package, ColAlive per slot.
	RowAlive []int `json:"row_alive"`
	ColAlive []int `json:"col_alive"`
}
