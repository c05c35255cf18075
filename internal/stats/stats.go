package stats

import "poopyPalsAPI/internal/types/poop"

type UserStats struct {
	TodayStatus         bool                `json:"today_status"`
	TotalLogs           int                 `json:"total_logs"`
	LogsThisWeek        int                 `json:"logs_this_week"`
	LogsThisMonth       int                 `json:"logs_this_month"`
	CurrentStreak       int                 `json:"current_streak"`
	LongestStreak       int                 `json:"longest_streak"`
	AverageDuration     float64             `json:"average_duration"`
	AverageConsistency  float64             `json:"average_consistency"`
	RatingBreakdown     map[poop.Rating]int `json:"rating_breakdown"`
	MostCommonHour      *int                `json:"most_common_hour,omitempty"`
	GutScore            float64             `json:"gut_score"`
	ChallengesCompleted int                 `json:"challenges_completed"`
	AchievementsCount   int                 `json:"achievements_count"`
	Coins               int                 `json:"coins"`
}
