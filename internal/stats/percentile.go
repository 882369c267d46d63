package stats

import (
	"sort"

	"github.com/akita-tools/akita/internal/domain"
)

// percentile interpolates linearly; vals must be sorted ascending.
func percentile(vals []float64, p float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return vals[0]
	}
	rank := float64(n-1) * p
	lo := int(rank)
	hi := lo + 1
	if hi >= n {
		return vals[n-1]
	}
	frac := rank - float64(lo)
	return vals[lo]*(1-frac) + vals[hi]*frac
}

// Describe summarizes a metric sample into avg/median/p95/min/max.
func Describe(values []float64) domain.Distribution {
	if len(values) == 0 {
		return domain.Distribution{}
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	sort.Float64s(vals)

	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return domain.Distribution{
		Count:  len(vals),
		Avg:    sum / float64(len(vals)),
		Median: percentile(vals, 0.5),
		P95:    percentile(vals, 0.95),
		Min:    vals[0],
		Max:    vals[len(vals)-1],
	}
}
