package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFormatRoundTrip(t *testing.T) {
	d, err := Parse("2025-09-14")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2025-09-14", Format(d))
}

func TestParseEmptyIsZero(t *testing.T) {
	d, err := Parse("  ")
	assert.NoError(t, err)
	assert.True(t, d.IsZero())
	assert.Equal(t, "", Format(d))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("14/09/2025")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	in := time.Date(2025, 9, 14, 18, 30, 45, 123, time.UTC)
	assert.Equal(t, time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC), Truncate(in))
}

func TestDaysBetween(t *testing.T) {
	a := MustParse("2025-09-01")
	b := MustParse("2025-09-14")
	assert.Equal(t, 13, DaysBetween(a, b))
	assert.Equal(t, -13, DaysBetween(b, a))
}
