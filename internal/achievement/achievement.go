package achievement

import (
	"time"

	"github.com/google/uuid"
)

type CriteriaType string

const (
	CriteriaLogCount            CriteriaType = "log_count"
	CriteriaStreak              CriteriaType = "streak_days"
	CriteriaGreatRatings        CriteriaType = "great_ratings"
	CriteriaChallengesCompleted CriteriaType = "challenges_completed"
)

type Achievement struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	Key           string       `json:"key" db:"key"`
	Name          string       `json:"name" db:"name"`
	Description   string       `json:"description" db:"description"`
	Icon          string       `json:"icon" db:"icon"`
	CriteriaType  CriteriaType `json:"criteria_type" db:"criteria_type"`
	CriteriaValue int          `json:"criteria_value" db:"criteria_value"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

type UserAchievement struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

type AchievementWithStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Progress is the snapshot achievements are checked against.
type Progress struct {
	TotalLogs           int
	LongestStreak       int
	GreatRatings        int
	ChallengesCompleted int
}

// Met reports whether the snapshot satisfies the achievement's criteria.
func (a Achievement) Met(p Progress) bool {
	switch a.CriteriaType {
	case CriteriaLogCount:
		return p.TotalLogs >= a.CriteriaValue
	case CriteriaStreak:
		return p.LongestStreak >= a.CriteriaValue
	case CriteriaGreatRatings:
		return p.GreatRatings >= a.CriteriaValue
	case CriteriaChallengesCompleted:
		return p.ChallengesCompleted >= a.CriteriaValue
	default:
		return false
	}
}
