package utils

import "math"

// CalculateGutScore folds rating quality, stool consistency and streak length
// into a 0-100 score. Consistency is best around 3-4 on the 1-5 scale.
func CalculateGutScore(goodRatingShare, avgConsistency float64, currentStreak int) float64 {
	if avgConsistency == 0 {
		return 0
	}

	consistencyScore := 1 - math.Abs(avgConsistency-3.5)/2.5
	if consistencyScore < 0 {
		consistencyScore = 0
	}

	streakScore := math.Min(float64(currentStreak), 14) / 14

	score := goodRatingShare*50 + consistencyScore*30 + streakScore*20
	return math.Round(score*10) / 10
}
