package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != 9*60+20 {
		t.Fatalf("clock = %d, want %d", c, 9*60+20)
	}
	if c.String() != "09:20" {
		t.Fatalf("String() = %q, want 09:20", c.String())
	}

	for _, bad := range []string{"9", "25:00", "10:60", "aa:bb", "24:30"} {
		if _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) expected error", bad)
		}
	}
}

func TestParseOpeningHours(t *testing.T) {
	h, err := ParseOpeningHours([]string{
		"Mon-Fri 09:00-12:00, 13:00-17:00",
		"Sat 22:00-02:00",
		"Sun closed",
	})
	require.NoError(t, err)

	assert.Len(t, h[time.Monday], 2)
	assert.Len(t, h[time.Friday], 2)
	assert.Empty(t, h[time.Sunday])
	assert.Equal(t, []Interval{{Open: 22 * 60, Close: 26 * 60}}, h[time.Saturday])

	assert.True(t, h.Contains(time.Tuesday, 13*60, 14*60))
	assert.False(t, h.Contains(time.Tuesday, 11*60, 13*60+30), "visit must not span the lunch gap")
}

func TestParseOpeningHoursWrapsWeekdayRange(t *testing.T) {
	h, err := ParseOpeningHours([]string{"Fri-Mon 10:00-18:00"})
	require.NoError(t, err)

	for _, d := range []time.Weekday{time.Friday, time.Saturday, time.Sunday, time.Monday} {
		assert.Len(t, h[d], 1, d.String())
	}
	assert.Empty(t, h[time.Wednesday])
}

func TestParseOpeningHoursRejectsGarbage(t *testing.T) {
	_, err := ParseOpeningHours([]string{"Someday 09:00-10:00"})
	assert.Error(t, err)

	_, err = ParseOpeningHours([]string{"Mon 9-10"})
	assert.Error(t, err)
}

func TestEarliestStart(t *testing.T) {
	h := Daily(10*60, 16*60)

	start, ok := h.EarliestStart(time.Monday, 9*60+30, 90, 60)
	require.True(t, ok)
	assert.Equal(t, Clock(10*60), start)

	_, ok = h.EarliestStart(time.Monday, 8*60, 90, 60)
	assert.False(t, ok, "two hour wait exceeds max wait")

	_, ok = h.EarliestStart(time.Monday, 15*60, 90, 60)
	assert.False(t, ok, "stay would run past closing")

	var closed OpeningHours
	assert.True(t, closed.NeverOpen())
}
