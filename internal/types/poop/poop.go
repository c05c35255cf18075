package poop

import (
	"time"

	"github.com/google/uuid"
)

type Rating string

const (
	RatingGreat Rating = "great"
	RatingGood  Rating = "good"
	RatingOkay  Rating = "okay"
	RatingBad   Rating = "bad"
)

// Ratings lists every rating a log can carry.
var Ratings = []Rating{RatingGreat, RatingGood, RatingOkay, RatingBad}

func (r Rating) Valid() bool {
	for _, known := range Ratings {
		if r == known {
			return true
		}
	}
	return false
}

// Log is a single logged visit. Logs are never edited after creation.
type Log struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	LoggedAt    time.Time `json:"logged_at" db:"logged_at"`
	Duration    int       `json:"duration" db:"duration"`
	Rating      Rating    `json:"rating" db:"rating"`
	Consistency int       `json:"consistency" db:"consistency"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
