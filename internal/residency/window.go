package residency

import (
	"time"

	"github.com/akita-tools/akita/internal/domain"
)

// DefaultTolerance is the max insertions+deletions a window may need to
// align with the expected sequence.
const DefaultTolerance = 10

// windowDurationFloor is the minimum sanity ceiling on window duration; the
// ceiling grows with the expected sequence length at 30s per slot.
const (
	windowDurationFloor   = 240 * time.Second
	windowSecondsPerStart = 30 * time.Second
)

// DetectLastWindow locates the last (most recent) contiguous sub-window of
// foreground starts whose package order aligns with the expected apps x
// rounds sequence within the tolerance. It scans end-points from the end of
// the log backward and, per end-point, tries window lengths from
// expected+tolerance down to expected-tolerance, keeping the candidate with
// lowest mismatch, then highest match count, then highest F1. Detected=false
// when nothing qualifies.
func DetectLastWindow(events []*domain.LogEvent, expected []string, rounds, tolerance int) domain.WindowResult {
	if rounds <= 0 {
		rounds = 2
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	seq := make([]string, 0, len(expected)*rounds)
	for r := 0; r < rounds; r++ {
		seq = append(seq, expected...)
	}
	expLen := len(seq)

	res := domain.WindowResult{
		ExpectedCount: expLen,
		Tolerance:     tolerance,
	}
	if expLen == 0 {
		return res
	}

	var points []startPoint
	for _, ev := range events {
		if ev.Kind == domain.KindStart && !ev.IsSubprocess {
			points = append(points, startPoint{pkg: ev.ProcessName, at: ev.Time})
		}
	}
	if len(points) == 0 {
		return res
	}
	fileEnd := points[len(points)-1].at
	res.FileEnd = fileEnd

	maxDuration := windowDurationFloor
	if d := time.Duration(expLen) * windowSecondsPerStart; d > maxDuration {
		maxDuration = d
	}

	type candidate struct {
		lo, hi   int // inclusive index range in points
		matched  int
		mismatch int
		f1       float64
	}

	better := func(a, b candidate) bool {
		if a.mismatch != b.mismatch {
			return a.mismatch < b.mismatch
		}
		if a.matched != b.matched {
			return a.matched > b.matched
		}
		return a.f1 > b.f1
	}

	pkgs := make([]string, len(points))
	for i, p := range points {
		pkgs[i] = p.pkg
	}

	for end := len(points) - 1; end >= 0; end-- {
		var best candidate
		found := false
		for winLen := expLen + tolerance; winLen >= expLen-tolerance; winLen-- {
			if winLen < 1 || winLen > end+1 {
				continue
			}
			lo := end - winLen + 1
			matched, mismatch := AlignSequences(seq, pkgs[lo:end+1])
			if mismatch > tolerance {
				continue
			}
			if points[end].at.Sub(points[lo].at) > maxDuration {
				continue
			}
			precision := float64(matched) / float64(winLen)
			recall := float64(matched) / float64(expLen)
			f1 := 0.0
			if precision+recall > 0 {
				f1 = 2 * precision * recall / (precision + recall)
			}
			cand := candidate{lo: lo, hi: end, matched: matched, mismatch: mismatch, f1: f1}
			if !found || better(cand, best) {
				best = cand
				found = true
			}
		}
		if !found {
			continue
		}

		res.Detected = true
		res.Start = points[best.lo].at
		res.End = points[best.hi].at
		res.MatchedCount = best.matched
		res.ObservedCount = best.hi - best.lo + 1
		res.MismatchCount = best.mismatch
		res.MatchScore = float64(best.matched) / float64(expLen) * 100
		res.DurationSec = res.End.Sub(res.Start).Seconds()
		res.TailGapSec = fileEnd.Sub(res.End).Seconds()
		res.Confidence = confidence(res)
		return res
	}
	return res
}

// confidence grades a detected window by alignment error, match score and
// how close the window sits to the end of the log.
func confidence(r domain.WindowResult) domain.Confidence {
	switch {
	case r.MismatchCount <= 2 && r.MatchScore >= 90 && r.TailGapSec <= 180:
		return domain.ConfidenceHigh
	case r.MismatchCount <= r.Tolerance/2 && r.MatchScore >= 70:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
