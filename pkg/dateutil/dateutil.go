// Package dateutil provides civil-date helpers for CARPAS.
// Academic records carry calendar dates (enrollment date, mark date), not
// instants: everything here works with midnight-UTC dates in ISO form.
// No external dependencies - uses only standard library.
package dateutil

import (
	"fmt"
	"strings"
	"time"
)

// ISODate is the wire and storage format for civil dates.
const ISODate = "2006-01-02"

// Today returns the current calendar date as midnight UTC.
func Today() time.Time {
	return Truncate(time.Now().UTC())
}

// Truncate drops the time-of-day component, keeping midnight UTC of the
// calendar date.
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Format renders a date in ISO form. The zero time renders as an empty
// string so optional dates stay optional on the wire.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISODate)
}

// Parse parses an ISO date into midnight UTC. An empty string yields the
// zero time without error, mirroring Format.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("dateutil: invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// MustParse parses an ISO date and panics on failure. Intended for
// constants in tests and seed data only.
func MustParse(s string) time.Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// SameDate reports whether two instants fall on the same UTC calendar date.
func SameDate(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysBetween returns the number of whole calendar days from a to b
// (negative when b precedes a).
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}
