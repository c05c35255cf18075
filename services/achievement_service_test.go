package services

import (
	"testing"
	"time"

	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/types/poop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAchievements_UnlocksOnce(t *testing.T) {
	env := newTestEnv(t)
	env.addLog(env.userID, env.clock().Add(-time.Hour), poop.RatingGreat)

	unlocked, err := env.achievements.CheckAchievements(env.ctx, env.userID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_log", unlocked[0].Key)

	again, err := env.achievements.CheckAchievements(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Empty(t, again)

	notifs := env.notificationsFor(env.userID)
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.TemplateAchievementUnlocked, notifs[0].TemplateID)
	assert.Contains(t, notifs[0].Message, unlocked[0].Description)
}

func TestCheckAchievements_StreakAndRatings(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 10; i++ {
		env.addLog(env.userID, env.clock().AddDate(0, 0, -i), poop.RatingGreat)
	}

	unlocked, err := env.achievements.CheckAchievements(env.ctx, env.userID)
	require.NoError(t, err)

	keys := make([]string, 0, len(unlocked))
	for _, a := range unlocked {
		keys = append(keys, a.Key)
	}
	assert.ElementsMatch(t, []string{"first_log", "streak_7", "great_10"}, keys)
}

func TestListAchievements_ReportsStatus(t *testing.T) {
	env := newTestEnv(t)

	list, err := env.achievements.ListAchievements(env.ctx, env.userID)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for _, a := range list {
		assert.False(t, a.Unlocked)
		assert.Nil(t, a.UnlockedAt)
	}
}
