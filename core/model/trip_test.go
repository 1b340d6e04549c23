package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTripStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TripStatus
		ok       bool
	}{
		{TripScheduled, TripAssigned, true},
		{TripScheduled, TripCancelled, true},
		{TripScheduled, TripOngoing, false},
		{TripAssigned, TripOngoing, true},
		{TripAssigned, TripScheduled, true},
		{TripAssigned, TripCancelled, true},
		{TripOngoing, TripCompleted, true},
		{TripOngoing, TripCancelled, false},
		{TripCompleted, TripOngoing, false},
		{TripCancelled, TripScheduled, false},
		{TripOngoing, TripOngoing, true},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestTripStatusTerminal(t *testing.T) {
	assert.True(t, TripCompleted.Terminal())
	assert.True(t, TripCancelled.Terminal())
	assert.False(t, TripScheduled.Terminal())
	assert.False(t, TripOngoing.Terminal())
}

func TestWindowOverlapsHalfOpen(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	a := TimeWindow{Start: base, End: base.Add(2 * time.Hour)}
	b := TimeWindow{Start: base.Add(2 * time.Hour), End: base.Add(4 * time.Hour)}
	assert.False(t, a.Overlaps(b), "back-to-back windows must not overlap")
	assert.False(t, b.Overlaps(a))

	c := TimeWindow{Start: base.Add(time.Hour), End: base.Add(3 * time.Hour)}
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(a))
}

func TestTripWindowFallbacks(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	tr := Trip{StartTime: start, BusyUntil: start.Add(4 * time.Hour)}
	assert.Equal(t, start.Add(4*time.Hour), tr.Window().End)

	tr = Trip{StartTime: start, EndTime: &end}
	assert.Equal(t, end, tr.Window().End)
}

func TestLicenseCovers(t *testing.T) {
	assert.True(t, LicenseCovers("E", 45))
	assert.True(t, LicenseCovers("D", 30))
	assert.False(t, LicenseCovers("D", 45))
	assert.True(t, LicenseCovers("B2", 9))
	assert.False(t, LicenseCovers("B2", 16))
	assert.False(t, LicenseCovers("", 4))
}

func TestDayOffCovers(t *testing.T) {
	d := DayOff{
		StartDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, d.Covers(time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)))
	assert.True(t, d.Covers(time.Date(2025, 3, 12, 23, 0, 0, 0, time.UTC)))
	assert.False(t, d.Covers(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)))
}

func TestParseHireType(t *testing.T) {
	assert.Equal(t, HireRoundTrip, ParseHireType(" round_trip "))
	assert.Equal(t, HireOneWay, ParseHireType("bogus"))
	assert.Equal(t, HireOneWay, ParseHireType(""))
}
