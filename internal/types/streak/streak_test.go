package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d, h int) time.Time {
	return time.Date(2025, 3, d, h, 0, 0, 0, time.UTC)
}

func TestCompute(t *testing.T) {
	today := day(12, 10)

	tests := []struct {
		name             string
		times            []time.Time
		current, longest int
	}{
		{"no logs", nil, 0, 0},
		{"today only", []time.Time{day(12, 8)}, 1, 1},
		{"several logs one day", []time.Time{day(12, 8), day(12, 9), day(12, 1)}, 1, 1},
		{"run ending yesterday", []time.Time{day(11, 8), day(10, 8), day(9, 8)}, 3, 3},
		{"run broken two days ago", []time.Time{day(10, 8), day(9, 8)}, 0, 2},
		{"longest in the past", []time.Time{day(12, 8), day(11, 8), day(5, 8), day(4, 8), day(3, 8), day(2, 8)}, 2, 4},
		{"unsorted input", []time.Time{day(10, 8), day(12, 8), day(11, 8)}, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.times, today)
			assert.Equal(t, tt.current, s.CurrentStreak)
			assert.Equal(t, tt.longest, s.LongestStreak)
			if len(tt.times) == 0 {
				assert.Nil(t, s.LastLogDate)
			} else {
				assert.NotNil(t, s.LastLogDate)
			}
		})
	}
}

func TestDaysUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 20:00 UTC on the 11th and 02:00 UTC on the 12th are both the 12th in Tokyo.
	days := Days([]time.Time{day(11, 20), day(12, 2)}, tokyo)
	assert.Len(t, days, 1)
	assert.Len(t, Days([]time.Time{day(11, 20), day(12, 2)}, time.UTC), 2)
}

func TestFromLatest(t *testing.T) {
	days := Days([]time.Time{day(8, 0), day(7, 0), day(5, 0)}, time.UTC)
	assert.Equal(t, 2, FromLatest(days))
	assert.Equal(t, 0, FromLatest(nil))
}
