package residency

import (
	"time"

	"github.com/akita-tools/akita/internal/domain"
)

// BuildHeatmap lays the classified starts onto the fixed packages x
// (rounds*packages) grid. Slots nobody filled are marked missing but never
// abort construction.
func BuildHeatmap(events []*domain.LogEvent, classified []*domain.ClassifiedEvent, packages []string, rounds int) *domain.Heatmap {
	if rounds <= 0 {
		rounds = 2
	}
	n := len(packages)
	slotCount := n * rounds

	hm := &domain.Heatmap{
		Packages: packages,
		Slots:    make([]domain.HeatmapSlot, slotCount),
		Cells:    make([][]domain.HeatmapCell, n),
		RowAlive: make([]int, n),
		ColAlive: make([]int, slotCount),
	}
	for i := range hm.Cells {
		hm.Cells[i] = make([]domain.HeatmapCell, slotCount)
	}

	// Slot timestamps come from the starts the sequence cursor accepted.
	slotTime := make([]time.Time, slotCount)
	for _, ce := range classified {
		if ce.Slot >= 0 && ce.Slot < slotCount && slotTime[ce.Slot].IsZero() {
			slotTime[ce.Slot] = ce.Event.Time
		}
	}
	for s := 0; s < slotCount; s++ {
		hm.Slots[s] = domain.HeatmapSlot{
			Package: packages[s%n],
			Round:   s/n + 1,
			Missing: slotTime[s].IsZero(),
			Time:    slotTime[s],
		}
	}

	tracked := trackedSet(packages)
	kills := buildKillIndex(events, tracked)

	// lastStartBefore returns the latest accepted start of pkg at or before t.
	lastStartBefore := func(pkg string, t time.Time) (time.Time, bool) {
		var best time.Time
		found := false
		for _, ce := range classified {
			if ce.Anomaly || ce.Event.ProcessName != pkg {
				continue
			}
			if ce.Event.Time.After(t) {
				continue
			}
			if !found || ce.Event.Time.After(best) {
				best = ce.Event.Time
				found = true
			}
		}
		return best, found
	}

	for s := 0; s < slotCount; s++ {
		if hm.Slots[s].Missing {
			continue
		}
		at := hm.Slots[s].Time
		for p, pkg := range packages {
			var cell domain.HeatmapCell
			switch {
			case pkg == hm.Slots[s].Package:
				cell = domain.CellSelf
			default:
				started, ok := lastStartBefore(pkg, at)
				if !ok || kills.killedBetween(pkg, started, at) {
					cell = domain.CellDead
				} else {
					cell = domain.CellAlive
				}
			}
			hm.Cells[p][s] = cell
			if cell != domain.CellDead {
				hm.RowAlive[p]++
				hm.ColAlive[s]++
			}
		}
	}
	return hm
}
