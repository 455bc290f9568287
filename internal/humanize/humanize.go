// Package humanize renders tracked durations as short strings like "1h 30m".
package humanize

import "strconv"

const msPerMinute = 60 * 1000

// Format converts a millisecond count to hours and minutes, rounded to the
// nearest minute with ties rounding up. A unit is omitted when it is zero and
// the other is not, so 3 600 000 formats as "1h" and 0 as "0m". Negative
// values are treated as zero.
func Format(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := (ms + msPerMinute/2) / msPerMinute
	h, m := minutes/60, minutes%60

	switch {
	case h > 0 && m > 0:
		return strconv.FormatInt(h, 10) + "h " + strconv.FormatInt(m, 10) + "m"
	case h > 0:
		return strconv.FormatInt(h, 10) + "h"
	default:
		return strconv.FormatInt(m, 10) + "m"
	}
}
