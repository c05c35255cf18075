package challenge

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeType string

const (
	TypeDaily       ChallengeType = "daily"
	TypeStreak      ChallengeType = "streak"
	TypeAchievement ChallengeType = "achievement"
)

type ConditionType string

const (
	ConditionLogCount       ConditionType = "logCount"
	ConditionConsistentTime ConditionType = "consistentTime"
	ConditionRatingAchieved ConditionType = "ratingAchieved"
	ConditionStreakReached  ConditionType = "streakReached"
	ConditionConsistentType ConditionType = "consistentType"
)

// DefaultTimeframeDays is the evaluation window used when a challenge has none.
const DefaultTimeframeDays = 7

type Condition struct {
	Type      ConditionType `json:"type" db:"condition_type" toml:"type"`
	Target    int           `json:"target" db:"condition_target" toml:"target"`
	Timeframe *int          `json:"timeframe,omitempty" db:"condition_timeframe" toml:"timeframe"`
}

func (c Condition) TimeframeDays() int {
	if c.Timeframe == nil || *c.Timeframe <= 0 {
		return DefaultTimeframeDays
	}
	return *c.Timeframe
}

type Challenge struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Key         string        `json:"key" db:"key"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	Reward      int           `json:"reward" db:"reward"`
	Type        ChallengeType `json:"type" db:"type"`
	Condition   Condition     `json:"condition"`
	IsActive    bool          `json:"is_active" db:"is_active"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

type UserChallenge struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	ChallengeID uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	Progress    int        `json:"progress" db:"progress"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	AssignedAt  time.Time  `json:"assigned_at" db:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// UserChallengeWithChallenge is an assignment joined with its catalog entry.
type UserChallengeWithChallenge struct {
	UserChallenge
	Challenge Challenge `json:"challenge"`
}

// MaxActive is how many incomplete assignments of a type a user may hold.
func MaxActive(t ChallengeType) int {
	switch t {
	case TypeDaily:
		return 2
	case TypeStreak:
		return 1
	case TypeAchievement:
		return 2
	default:
		return 1
	}
}
