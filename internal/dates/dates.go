// Package dates handles the feed's "DD/MM/YYYY, HH:mm" timestamps.
package dates

import (
	"strings"
	"time"
)

// Layout accepts one- or two-digit day, month and hour.
const Layout = "2/1/2006, 15:04"

type Range struct {
	Earliest time.Time
	Latest   time.Time
	Valid    bool
}

func Parse(s string) (time.Time, error) {
	return time.Parse(Layout, strings.TrimSpace(s))
}

// RangeOf scans values for the earliest and latest timestamp. Unparsable
// entries are skipped.
func RangeOf(values []string) Range {
	var r Range
	for _, v := range values {
		t, err := Parse(v)
		if err != nil {
			continue
		}
		if !r.Valid {
			r = Range{Earliest: t, Latest: t, Valid: true}
			continue
		}
		if t.Before(r.Earliest) {
			r.Earliest = t
		}
		if t.After(r.Latest) {
			r.Latest = t
		}
	}
	return r
}

// FormatMonthDay renders t as "May 4".
func FormatMonthDay(t time.Time) string {
	return t.Format("Jan 2")
}

func (r Range) Label() string {
	if !r.Valid {
		return ""
	}
	return FormatMonthDay(r.Earliest) + " - " + FormatMonthDay(r.Latest)
}
