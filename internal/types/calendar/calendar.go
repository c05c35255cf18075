package calendar

import "time"

type CalendarDay struct {
	Date      time.Time `json:"date"`
	LogCount  int       `json:"log_count"`
	LoggedDay bool      `json:"logged_day"`
	IsToday   bool      `json:"is_today"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}

type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}
