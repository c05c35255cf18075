package reminder

import (
	"time"

	"poopyPalsAPI/utils"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

type Reminder struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Frequency Frequency `json:"frequency" db:"frequency"`
	// Time is "HH:MM" in the service time zone.
	Time string `json:"time" db:"time"`
	// DaysOfWeek uses 0 for Sunday through 6 for Saturday.
	DaysOfWeek  []int      `json:"days_of_week" db:"days_of_week"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty" db:"last_fired_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

func (r *Reminder) allowsWeekday(day time.Weekday, loc *time.Location) bool {
	days := r.DaysOfWeek
	switch r.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		if len(days) == 0 {
			return r.CreatedAt.In(loc).Weekday() == day
		}
	}
	for _, d := range days {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

// DueBetween returns the occurrence in (from, to] at which the reminder
// fires, if any. Inactive or already fired occurrences are never due.
func (r *Reminder) DueBetween(from, to time.Time, loc *time.Location) (time.Time, bool) {
	if !r.IsActive || !to.After(from) {
		return time.Time{}, false
	}
	hour, minute, err := utils.ParseClock(r.Time)
	if err != nil {
		return time.Time{}, false
	}

	from, to = from.In(loc), to.In(loc)
	day := utils.StartOfDay(from)
	for !day.After(to) {
		at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
		fired := r.LastFiredAt != nil && !r.LastFiredAt.Before(at)
		if at.After(from) && !at.After(to) && !fired && r.allowsWeekday(at.Weekday(), loc) {
			return at, true
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}
