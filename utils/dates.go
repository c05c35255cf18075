package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseClock parses a 24h "HH:MM" string.
func ParseClock(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

// ClockMinutes returns minutes since midnight for a "HH:MM" string.
func ClockMinutes(s string) (int, error) {
	h, m, err := ParseClock(s)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// InClockWindow reports whether t's wall clock falls in [start, end).
// A window whose start is after its end wraps midnight, e.g. 22:00-07:00.
func InClockWindow(t time.Time, start, end string) (bool, error) {
	startMinutes, err := ClockMinutes(start)
	if err != nil {
		return false, err
	}
	endMinutes, err := ClockMinutes(end)
	if err != nil {
		return false, err
	}

	current := t.Hour()*60 + t.Minute()
	if startMinutes > endMinutes {
		return current >= startMinutes || current < endMinutes, nil
	}
	return current >= startMinutes && current < endMinutes, nil
}
