package residency

// AlignSequences scores how well an observed package sequence matches an
// expected one. matched is the longest-common-subsequence length; mismatch
// is the total insertions plus deletions the alignment implies,
// len(expected) + len(observed) - 2*matched.
func AlignSequences(expected, observed []string) (matched, mismatch int) {
	n, m := len(expected), len(observed)
	if n == 0 || m == 0 {
		return 0, n + m
	}

	// Two-row DP keeps memory linear in the observed window length.
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if expected[i-1] == observed[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	matched = prev[m]
	return matched, n + m - 2*matched
}
