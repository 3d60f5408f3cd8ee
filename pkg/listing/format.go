package listing

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// byteUnits are binary-divisor units with the SI-style labels the original
// listing tools print (the parenthesized total corresponds to the unit of
// billing measurement, mebibytes and up).
var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// HumanReadableBytes renders a byte count with a 1024 divisor rounded to two
// decimal places, e.g. 2276224 → "2.17 MB", 6190848 → "5.9 MB", 0 → "0.0 B".
//
// Whole values keep a trailing ".0" so 1024 renders as "1.0 KB".
func HumanReadableBytes(n int64) string {
	v := float64(n)
	i := 0
	for i+1 < len(byteUnits) && v >= 1024 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + " " + byteUnits[i]
}

// formatListingTime renders a timestamp for the mid-detail listing line:
// the date-and-time portion of the ISO form, fractional seconds and zone
// suffix dropped. Example: 2010-08-23T12:46:54.187Z → "2010-08-23T12:46:54".
func formatListingTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

// formatFullTime renders the full last-modified timestamp printed by the
// extended-detail block, e.g. "Fri, 02 Mar 2012 19:25:17 GMT".
func formatFullTime(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}
