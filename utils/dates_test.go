package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 45, m)

	for _, bad := range []string{"", "7", "24:00", "12:60", "ab:cd"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestInClockWindow(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 3, 12, h, m, 0, 0, time.UTC) }

	tests := []struct {
		name       string
		t          time.Time
		start, end string
		want       bool
	}{
		{"inside day window", at(12, 0), "09:00", "17:00", true},
		{"start inclusive", at(9, 0), "09:00", "17:00", true},
		{"end exclusive", at(17, 0), "09:00", "17:00", false},
		{"wraps before midnight", at(23, 30), "22:00", "07:00", true},
		{"wraps after midnight", at(6, 59), "22:00", "07:00", true},
		{"outside wrapped window", at(7, 0), "22:00", "07:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InClockWindow(tt.t, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := InClockWindow(at(1, 0), "late", "07:00")
	assert.Error(t, err)
}

func TestDayHelpers(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	ts := time.Date(2025, 3, 12, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-03-12", DateKey(ts))
	assert.Equal(t, "2025-03-13", DateKey(ts.In(loc)))
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, loc), StartOfDay(ts.In(loc)))
	assert.True(t, SameDay(ts, ts.Add(-23*time.Hour)))
	assert.False(t, SameDay(ts, ts.Add(time.Hour)))
}

func TestCalculateGutScore(t *testing.T) {
	assert.Zero(t, CalculateGutScore(1, 0, 10))
	assert.Equal(t, 100.0, CalculateGutScore(1, 3.5, 14))
	assert.Equal(t, 100.0, CalculateGutScore(1, 3.5, 40))
	assert.Equal(t, 30.0, CalculateGutScore(0, 3.5, 0))
	assert.Equal(t, 50.0, CalculateGutScore(1, 1, 0))
}
