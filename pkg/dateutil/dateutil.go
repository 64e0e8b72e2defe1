// Package dateutil holds the wall-clock conversions used across the
// service. Timestamps are stored in UTC; daily and weekly boundaries are
// defined in the deployment's display zone.
package dateutil

import (
	"strings"
	"time"
)

// Day truncates an instant to its calendar date in loc. The result is a
// pure date value (midnight UTC), the canonical representation for DATE
// columns.
func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc
func Today(loc *time.Location) time.Time {
	return Day(time.Now(), loc)
}

// EndOfDay returns the instant 23:59:59 local time of the given date,
// expressed in UTC.
func EndOfDay(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, loc).UTC()
}

// WeekBounds returns the Monday and Sunday dates of the week containing
// the given instant, judged in loc.
func WeekBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	date := Day(t, loc)
	wd := int(date.Weekday())
	if wd == 0 {
		wd = 7 // Sunday
	}
	monday := date.AddDate(0, 0, -(wd - 1))
	return monday, monday.AddDate(0, 0, 6)
}

// SameDate reports whether two date values fall on the same calendar day
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// WeekdayKey returns the lowercase three-letter weekday name of an
// instant in loc ("mon" ... "sun"), matching reminder day sets.
func WeekdayKey(t time.Time, loc *time.Location) string {
	return strings.ToLower(t.In(loc).Weekday().String()[:3])
}

// ParseClock parses a "HH:MM" wall-clock string and returns hour and
// minute. ok is false for malformed input.
func ParseClock(s string) (hour, minute int, ok bool) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, false
	}
	return parsed.Hour(), parsed.Minute(), true
}
