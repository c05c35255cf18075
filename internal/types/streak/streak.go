package streak

import (
	"sort"
	"time"

	"poopyPalsAPI/utils"
)

type Streak struct {
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	LastLogDate   *time.Time `json:"last_log_date"`
}

// Days returns the distinct local calendar days of the given instants,
// newest first.
func Days(times []time.Time, loc *time.Location) []time.Time {
	seen := make(map[string]struct{}, len(times))
	days := make([]time.Time, 0, len(times))
	for _, t := range times {
		day := utils.StartOfDay(t.In(loc))
		key := utils.DateKey(day)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

// FromLatest counts consecutive days back from the newest day until the
// first gap. days must be distinct and sorted newest first.
func FromLatest(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}
	count := 1
	for i := 1; i < len(days); i++ {
		if !utils.SameDay(days[i], days[i-1].AddDate(0, 0, -1)) {
			break
		}
		count++
	}
	return count
}

// Longest returns the longest run of consecutive days.
func Longest(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if utils.SameDay(days[i], days[i-1].AddDate(0, 0, -1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// Compute builds the streak summary as of today. The current streak only
// counts while the newest day is today or yesterday.
func Compute(times []time.Time, today time.Time) Streak {
	loc := today.Location()
	days := Days(times, loc)
	if len(days) == 0 {
		return Streak{}
	}

	last := days[0]
	s := Streak{
		LongestStreak: Longest(days),
		LastLogDate:   &last,
	}

	todayStart := utils.StartOfDay(today)
	if utils.SameDay(last, todayStart) || utils.SameDay(last, todayStart.AddDate(0, 0, -1)) {
		s.CurrentStreak = FromLatest(days)
	}
	return s
}
