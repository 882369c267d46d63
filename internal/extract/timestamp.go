package extract

import (
	"fmt"
	"strings"
	"time"
)

// logTimeLayout covers both accepted timestamp shapes; time.Parse accepts a
// trailing fractional second even though the layout omits it.
const logTimeLayout = "2006-01-02 15:04:05"

// parseLogTime parses a "month-day hour:min:sec[.millis]" stamp, assuming
// the given year.
func parseLogTime(ts string, year int) (time.Time, error) {
	return time.Parse(logTimeLayout, fmt.Sprintf("%d-%s", year, ts))
}

// parseLatencyMS converts a Displayed latency like "+1s253ms" or "+812ms"
// to milliseconds. The format happens to be a valid Go duration.
// Unparseable values come back as 0.
func parseLatencyMS(s string) int {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return int(d.Milliseconds())
}
