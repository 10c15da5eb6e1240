package strips

import (
	"fmt"
	"time"
)

// DateLayout is the canonical date format used in cache keys and source paths.
const DateLayout = "2006-01-02"

// FirstStripDate is the date of the earliest published strip.
var FirstStripDate = time.Date(1989, time.April, 16, 0, 0, 0, 0, time.UTC)

// ParseDate parses a YYYY-MM-DD date, rejecting impossible dates such as
// 2020-02-30. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	date, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return date, nil
}

// FormatDate formats the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// calendarDate returns midnight UTC of the calendar day t falls on in loc.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// normalizeDate drops any time of day from a date already expressed in UTC
// or carrying its own zone.
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
