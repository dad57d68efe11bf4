package date

import (
	"fmt"
	"time"
)

// Layout is the wire format for calendar days ("YYYY-MM-DD").
// Lexical ordering of the formatted string matches chronological ordering.
const Layout = "2006-01-02"

// Day is an opaque calendar-day label in "YYYY-MM-DD" format. It is not a
// timestamp: two services in different time zones agree on the label, and all
// day arithmetic goes through this package.
type Day string

// Parse validates s and returns it as a Day.
func Parse(s string) (Day, error) {
	if _, err := time.Parse(Layout, s); err != nil {
		return "", fmt.Errorf("invalid calendar day %q: %w", s, err)
	}
	return Day(s), nil
}

// FromTime returns the Day containing t in the given location.
func FromTime(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc).Format(Layout))
}

// Today returns the current Day in the given location.
func Today(loc *time.Location) Day {
	return FromTime(time.Now(), loc)
}

// String returns the "YYYY-MM-DD" label.
func (d Day) String() string { return string(d) }

// IsZero reports whether d is the empty label.
func (d Day) IsZero() bool { return d == "" }

// Valid reports whether d parses as a calendar day.
func (d Day) Valid() bool {
	_, err := time.Parse(Layout, string(d))
	return err == nil
}

// Next returns the calendar day immediately after d.
func (d Day) Next() Day {
	t, err := time.Parse(Layout, string(d))
	if err != nil {
		return ""
	}
	return Day(t.AddDate(0, 0, 1).Format(Layout))
}

// Prev returns the calendar day immediately before d.
func (d Day) Prev() Day {
	t, err := time.Parse(Layout, string(d))
	if err != nil {
		return ""
	}
	return Day(t.AddDate(0, 0, -1).Format(Layout))
}

// Before reports whether d sorts before other. Lexical comparison is
// sufficient for the fixed-width layout.
func (d Day) Before(other Day) bool { return string(d) < string(other) }

// Window returns the [start, end] instants of d in the given location.
// end is the last nanosecond of the day, so a timestamp is "within" the day
// iff !t.Before(start) && !t.After(end).
func (d Day) Window(loc *time.Location) (start, end time.Time, err error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(Layout, string(d), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid calendar day %q: %w", d, err)
	}
	start = t
	end = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end, nil
}

// Contains reports whether t falls within d in the given location.
func (d Day) Contains(t time.Time, loc *time.Location) bool {
	start, end, err := d.Window(loc)
	if err != nil {
		return false
	}
	return !t.Before(start) && !t.After(end)
}
