package normalize

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// FarFuture closes validity windows the source leaves open.
var FarFuture = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)

// Date parses YYYY-MM-DD, also accepting a trailing time component.
func Date(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(dateLayout) {
		raw = raw[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Today truncates now to a UTC calendar date.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
