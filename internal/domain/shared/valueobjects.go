package shared

import "strings"

// ═══════════════════════════════════════════════════════════════════════════
// SEMESTER
// Used by both students (current semester) and courses (offered semester).
// ═══════════════════════════════════════════════════════════════════════════

// Semester represents an academic semester number. Zero means "not set".
type Semester int

// MaxSemester is the highest semester the system accepts.
const MaxSemester = 12

// IsValid reports whether the semester is zero or within 1..MaxSemester.
func (s Semester) IsValid() bool {
	return s == 0 || (s >= 1 && s <= MaxSemester)
}

// IsSet reports whether a semester value has been provided.
func (s Semester) IsSet() bool {
	return s != 0
}

// Int returns the semester as a plain int.
func (s Semester) Int() int {
	return int(s)
}

// ═══════════════════════════════════════════════════════════════════════════
// IDENTIFIER NORMALIZATION
// Roll numbers and course codes share the same canonical form: trimmed,
// uppercased, with inner whitespace removed.
// ═══════════════════════════════════════════════════════════════════════════

// NormalizeCode converts an external identifier (roll number, course code)
// to its canonical stored form.
func NormalizeCode(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(s), "")
}

// TrimName collapses runs of whitespace in a human name or title to single
// spaces and trims the ends.
func TrimName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
