// Package storetest holds the behaviour every store.Store implementation
// must share. Each backend's tests call Run with a fresh store.
package storetest

import (
	"context"
	"testing"
	"time"

	"poopyPalsAPI/internal/achievement"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/challenge"
	"poopyPalsAPI/internal/types/poop"
	"poopyPalsAPI/internal/types/reminder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s. The store may be shared with other runs, so every
// fixture uses fresh ids.
func Run(t *testing.T, s store.Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, s) })
	t.Run("Logs", func(t *testing.T) { testLogs(t, s) })
	t.Run("Challenges", func(t *testing.T) { testChallenges(t, s) })
	t.Run("AssignUserChallenge", func(t *testing.T) { testAssignUserChallenge(t, s) })
	t.Run("Achievements", func(t *testing.T) { testAchievements(t, s) })
	t.Run("Notifications", func(t *testing.T) { testNotifications(t, s) })
	t.Run("Preferences", func(t *testing.T) { testPreferences(t, s) })
	t.Run("Reminders", func(t *testing.T) { testReminders(t, s) })
}

// Truncated to milliseconds so both backends round-trip it exactly.
var base = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func newUser(t *testing.T, s store.Store) uuid.UUID {
	t.Helper()
	u, err := s.EnsureUser(context.Background(), "ext-"+uuid.NewString(), "tester")
	require.NoError(t, err)
	return u.ID
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	ext := "ext-" + uuid.NewString()

	first, err := s.EnsureUser(ctx, ext, "alice")
	require.NoError(t, err)
	again, err := s.EnsureUser(ctx, ext, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "alice", again.Username)

	updated, err := s.UpdateUsername(ctx, first.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", updated.Username)

	require.NoError(t, s.AddCoins(ctx, first.ID, 15))
	require.NoError(t, s.AddCoins(ctx, first.ID, 5))
	got, err := s.GetUser(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Coins)

	ids, err := s.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, first.ID)

	_, err = s.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.AddCoins(ctx, uuid.New(), 1), store.ErrNotFound)
}

func testLogs(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser(t, s)

	for i := 0; i < 4; i++ {
		require.NoError(t, s.CreateLog(ctx, &poop.Log{
			UserID:      userID,
			LoggedAt:    base.Add(-time.Duration(i) * time.Hour),
			Duration:    i + 1,
			Rating:      poop.RatingGood,
			Consistency: 4,
		}))
	}

	logs, err := s.ListLogs(ctx, userID, base.Add(-2*time.Hour), base)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].LoggedAt.Equal(base), "newest first, bounds inclusive")
	assert.True(t, logs[2].LoggedAt.Equal(base.Add(-2*time.Hour)))

	page, err := s.ListRecentLogs(ctx, userID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].Duration)

	got, err := s.GetLog(ctx, userID, logs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, poop.RatingGood, got.Rating)

	_, err = s.GetLog(ctx, newUser(t, s), logs[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func newChallenge(t *testing.T, s store.Store) *challenge.Challenge {
	t.Helper()
	c := &challenge.Challenge{
		ID:        uuid.New(),
		Key:       "test_" + uuid.NewString(),
		Title:     "Test",
		Reward:    10,
		Type:      challenge.TypeDaily,
		Condition: challenge.Condition{Type: challenge.ConditionLogCount, Target: 2},
		IsActive:  true,
	}
	require.NoError(t, s.UpsertChallenge(context.Background(), c))
	return c
}

func testChallenges(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser(t, s)
	c := newChallenge(t, s)

	c.Title = "Renamed"
	require.NoError(t, s.UpsertChallenge(ctx, c))
	got, err := s.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, 2, got.Condition.Target)

	uc := &challenge.UserChallenge{UserID: userID, ChallengeID: c.ID, AssignedAt: base}
	require.NoError(t, s.CreateUserChallenge(ctx, uc))

	saved, err := s.SaveUserChallengeProgress(ctx, uc.ID, 0, 1, nil)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = s.SaveUserChallengeProgress(ctx, uc.ID, 0, 2, nil)
	require.NoError(t, err)
	assert.False(t, saved, "stale expected progress")

	done := base.Add(time.Hour)
	saved, err = s.SaveUserChallengeProgress(ctx, uc.ID, 1, 2, &done)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = s.SaveUserChallengeProgress(ctx, uc.ID, 2, 3, nil)
	require.NoError(t, err)
	assert.False(t, saved, "completed rows are frozen")

	active, err := s.ListUserChallenges(ctx, userID, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListUserChallenges(ctx, userID, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsCompleted)
	assert.Equal(t, "Renamed", all[0].Challenge.Title)
	require.NotNil(t, all[0].CompletedAt)
	assert.True(t, all[0].CompletedAt.Equal(done))

	count, err := s.CountCompletedChallenges(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testAssignUserChallenge(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser(t, s)
	first, second := newChallenge(t, s), newChallenge(t, s)

	uc := &challenge.UserChallenge{UserID: userID, ChallengeID: first.ID, AssignedAt: base}
	ok, err := s.AssignUserChallenge(ctx, uc, challenge.TypeDaily, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, uuid.Nil, uc.ID)

	dup := &challenge.UserChallenge{UserID: userID, ChallengeID: first.ID, AssignedAt: base}
	ok, err = s.AssignUserChallenge(ctx, dup, challenge.TypeDaily, 2)
	require.NoError(t, err)
	assert.False(t, ok, "same challenge already active")

	capped := &challenge.UserChallenge{UserID: userID, ChallengeID: second.ID, AssignedAt: base}
	ok, err = s.AssignUserChallenge(ctx, capped, challenge.TypeDaily, 1)
	require.NoError(t, err)
	assert.False(t, ok, "type cap reached")

	active, err := s.ListUserChallenges(ctx, userID, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	// Completing the assignment frees both the slot and the challenge.
	done := base.Add(time.Hour)
	saved, err := s.SaveUserChallengeProgress(ctx, uc.ID, 0, 2, &done)
	require.NoError(t, err)
	require.True(t, saved)

	again := &challenge.UserChallenge{UserID: userID, ChallengeID: first.ID, AssignedAt: done}
	ok, err = s.AssignUserChallenge(ctx, again, challenge.TypeDaily, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := s.ListUserChallenges(ctx, userID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	err = s.CreateUserChallenge(ctx, &challenge.UserChallenge{UserID: userID, ChallengeID: first.ID, AssignedAt: done})
	assert.Error(t, err, "one active row per user and challenge")
}

func testAchievements(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser(t, s)
	a := &achievement.Achievement{
		ID:            uuid.New(),
		Key:           "test_" + uuid.NewString(),
		Name:          "Test",
		CriteriaType:  achievement.CriteriaLogCount,
		CriteriaValue: 1,
	}
	require.NoError(t, s.UpsertAchievement(ctx, a))

	unlocked, err := s.UnlockAchievement(ctx, userID, a.ID, base)
	require.NoError(t, err)
	assert.True(t, unlocked)
	unlocked, err = s.UnlockAchievement(ctx, userID, a.ID, base.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, unlocked)

	list, err := s.ListAchievementsWithStatus(ctx, userID)
	require.NoError(t, err)
	var found bool
	for _, item := range list {
		if item.ID == a.ID {
			found = true
			assert.True(t, item.Unlocked)
			require.NotNil(t, item.UnlockedAt)
			assert.True(t, item.UnlockedAt.Equal(base))
		}
	}
	assert.True(t, found)
}

func testNotifications(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser(t, s)

	tmpl := &notification.Template{
		ID:              "test_" + uuid.NewString(),
		Type:            notification.TypeTip,
		TitleTemplate:   "Tip",
		MessageTemplate: "{{text}}",
	}
	require.NoError(t, s.UpsertTemplate(ctx, tmpl))
	got, err := s.GetTemplate(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "{{text}}", got.MessageTemplate)
	tips, err := s.ListTemplatesByType(ctx, notification.TypeTip)
	require.NoError(t, err)
	assert.NotEmpty(t, tips)

	due := base.Add(-time.Minute)
	later := base.Add(time.Hour)
	immediate := &notification.Notification{UserID: userID, Type: notification.TypeTip, Title: "a", Message: "a", CreatedAt: base.Add(-2 * time.Hour), Data: map[string]any{"k": "v"}}
	scheduled := &notification.Notification{UserID: userID, Type: notification.TypeReminder, Title: "b", Message: "b", CreatedAt: base.Add(-time.Hour), ExpiresAt: &due}
	future := &notification.Notification{UserID: userID, Type: notification.TypeReminder, Title: "c", Message: "c", CreatedAt: base, ExpiresAt: &later}
	for _, n := range []*notification.Notification{immediate, scheduled, future} {
		require.NoError(t, s.CreateNotification(ctx, n))
	}

	list, err := s.ListNotifications(ctx, userID, 10, 0, false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, future.ID, list[0].ID, "newest first")
	assert.Equal(t, "v", list[2].Data["k"])

	latest, err := s.GetLatestNotification(ctx, userID, notification.TypeReminder)
	require.NoError(t, err)
	assert.Equal(t, future.ID, latest.ID)
	_, err = s.GetLatestNotification(ctx, userID, notification.TypeStreak)
	assert.ErrorIs(t, err, store.ErrNotFound)

	dueList, err := s.ListDueNotifications(ctx, base, 1000)
	require.NoError(t, err)
	assert.Contains(t, ids(dueList), scheduled.ID)
	assert.NotContains(t, ids(dueList), future.ID)
	assert.NotContains(t, ids(dueList), immediate.ID)

	require.NoError(t, s.MarkNotificationProcessed(ctx, scheduled.ID, base))
	dueList, err = s.ListDueNotifications(ctx, base, 1000)
	require.NoError(t, err)
	assert.NotContains(t, ids(dueList), scheduled.ID)

	require.NoError(t, s.MarkNotificationRead(ctx, userID, immediate.ID))
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, userID, immediate.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, newUser(t, s), scheduled.ID), store.ErrNotFound)

	unread, err := s.CountNotifications(ctx, userID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	n, err := s.MarkAllNotificationsRead(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.DeleteNotification(ctx, userID, future.ID))
	assert.ErrorIs(t, s.DeleteNotification(ctx, userID, future.ID), store.ErrNotFound)
	total, err := s.CountNotifications(ctx, userID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func ids(list []*notification.Notification) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}

func testPreferences(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser(t, s)

	_, err := s.GetPreferences(ctx, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	start, end := "22:00", "07:00"
	prefs := notification.DefaultPreferences(userID)
	prefs.Tips = false
	prefs.DoNotDisturbStart, prefs.DoNotDisturbEnd = &start, &end
	prefs.DeviceTokens = []notification.DeviceToken{{Token: "tok", Platform: "ios", AddedAt: base, LastUsed: base}}
	require.NoError(t, s.SavePreferences(ctx, prefs))

	got, err := s.GetPreferences(ctx, userID)
	require.NoError(t, err)
	assert.False(t, got.Tips)
	assert.True(t, got.Reminders)
	require.NotNil(t, got.DoNotDisturbStart)
	assert.Equal(t, "22:00", *got.DoNotDisturbStart)
	require.Len(t, got.DeviceTokens, 1)
	assert.Equal(t, "tok", got.DeviceTokens[0].Token)

	got.DoNotDisturbStart, got.DoNotDisturbEnd = nil, nil
	require.NoError(t, s.SavePreferences(ctx, got))
	got, err = s.GetPreferences(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, got.DoNotDisturbStart)
}

func testReminders(t *testing.T, s store.Store) {
	ctx := context.Background()
	userID := newUser(t, s)

	r := &reminder.Reminder{
		ID:         uuid.New(),
		UserID:     userID,
		Title:      "Morning",
		Frequency:  reminder.FrequencyCustom,
		Time:       "08:00",
		DaysOfWeek: []int{1, 3, 5},
		IsActive:   true,
		CreatedAt:  base,
		UpdatedAt:  base,
	}
	require.NoError(t, s.CreateReminder(ctx, r))

	got, err := s.GetReminder(ctx, userID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, got.DaysOfWeek)
	assert.Nil(t, got.LastFiredAt)

	require.NoError(t, s.MarkReminderFired(ctx, r.ID, base))
	active, err := s.ListActiveReminders(ctx)
	require.NoError(t, err)
	var fired *reminder.Reminder
	for _, a := range active {
		if a.ID == r.ID {
			fired = a
		}
	}
	require.NotNil(t, fired)
	require.NotNil(t, fired.LastFiredAt)
	assert.True(t, fired.LastFiredAt.Equal(base))

	got.IsActive = false
	got.DaysOfWeek = []int{0}
	require.NoError(t, s.UpdateReminder(ctx, got))
	list, err := s.ListReminders(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
	assert.Equal(t, []int{0}, list[0].DaysOfWeek)

	_, err = s.GetReminder(ctx, newUser(t, s), r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, s.DeleteReminder(ctx, userID, r.ID))
	assert.ErrorIs(t, s.DeleteReminder(ctx, userID, r.ID), store.ErrNotFound)
}
