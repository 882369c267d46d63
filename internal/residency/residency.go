// Package residency measures how well tracked applications survive in the
// background across a multi-round startup sequence: per-start residency
// rows, the fixed-slot survival heatmap, and the startup-window alignment
// search.
package residency

import (
	"sort"
	"time"

	"github.com/akita-tools/akita/internal/domain"
)

// startPoint is one qualifying tracked start.
type startPoint struct {
	pkg string
	at  time.Time
}

// killIndex maps package -> sorted kill/lmk times for main processes.
type killIndex map[string][]time.Time

func buildKillIndex(events []*domain.LogEvent, tracked map[string]bool) killIndex {
	idx := killIndex{}
	for _, ev := range events {
		if ev.Kind != domain.KindKill && ev.Kind != domain.KindLMK {
			continue
		}
		if ev.IsSubprocess {
			continue
		}
		if tracked != nil && !tracked[ev.ProcessName] {
			continue
		}
		idx[ev.ProcessName] = append(idx[ev.ProcessName], ev.Time)
	}
	for _, ts := range idx {
		sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	}
	return idx
}

// killedBetween reports whether pkg was killed strictly between start and ref.
func (idx killIndex) killedBetween(pkg string, start, ref time.Time) bool {
	for _, t := range idx[pkg] {
		if t.After(start) && t.Before(ref) {
			return true
		}
	}
	return false
}

// trackedSet builds a lookup from an ordered package list, nil when empty.
func trackedSet(packages []string) map[string]bool {
	if len(packages) == 0 {
		return nil
	}
	set := make(map[string]bool, len(packages))
	for _, p := range packages {
		set[p] = true
	}
	return set
}

// Table computes the residency table: one row per qualifying (non-anomalous)
// tracked start from the second onward, with alive/total tallies for
// look-back windows 1..5 and for all preceding starts.
func Table(events []*domain.LogEvent, classified []*domain.ClassifiedEvent, packages []string) []*domain.ResidencyRecord {
	tracked := trackedSet(packages)
	kills := buildKillIndex(events, tracked)

	var starts []startPoint
	for _, ce := range classified {
		if ce.Anomaly {
			continue
		}
		starts = append(starts, startPoint{pkg: ce.Event.ProcessName, at: ce.Event.Time})
	}

	var out []*domain.ResidencyRecord
	for i, cur := range starts {
		if i == 0 {
			continue
		}
		rec := &domain.ResidencyRecord{
			Seq:       i + 1,
			Package:   cur.pkg,
			Time:      cur.at,
			PerWindow: make(map[int]domain.WindowRate, domain.ResidencyWindowMax),
		}

		lo := i - domain.ResidencyWindowMax
		if lo < 0 {
			lo = 0
		}
		window := starts[lo:i]
		for _, ps := range window {
			if kills.killedBetween(ps.pkg, ps.at, cur.at) {
				rec.KilledList = append(rec.KilledList, ps.pkg)
			} else {
				rec.AliveList = append(rec.AliveList, ps.pkg)
			}
		}

		for n := 1; n <= domain.ResidencyWindowMax; n++ {
			if len(window) < n {
				rec.PerWindow[n] = domain.WindowRate{}
				continue
			}
			subset := window[len(window)-n:]
			wr := domain.WindowRate{Total: n}
			for _, ps := range subset {
				if !kills.killedBetween(ps.pkg, ps.at, cur.at) {
					wr.Alive++
					wr.Live = append(wr.Live, ps.pkg)
				}
			}
			rec.PerWindow[n] = wr
		}

		all := domain.WindowRate{Total: i}
		for _, ps := range starts[:i] {
			if !kills.killedBetween(ps.pkg, ps.at, cur.at) {
				all.Alive++
				all.Live = append(all.Live, ps.pkg)
			}
		}
		rec.All = all
		out = append(out, rec)
	}
	return out
}
