package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/store/sqlite"
	"poopyPalsAPI/internal/types/poop"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onlyCategory(p *notification.Preferences, reminders, streaks, tips bool) {
	p.Reminders = reminders
	p.StreakAlerts = streaks
	p.Tips = tips
}

// logDaily writes one log per day at hour for the n days before now.
func logDaily(env *testEnv, userID uuid.UUID, n, hour int) {
	today := env.clock()
	for i := 1; i <= n; i++ {
		day := today.AddDate(0, 0, -i)
		env.addLog(userID, time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC), poop.RatingGood)
	}
}

func TestScheduleNotifications_PushDisabledDoesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.setPrefs(env.userID, func(p *notification.Preferences) { p.PushEnabled = false })
	env.addLog(env.userID, env.clock().AddDate(0, 0, -2), poop.RatingGood)

	created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, env.notificationsFor(env.userID))
}

func TestScheduleNotifications_MissedLogs(t *testing.T) {
	env := newTestEnv(t)
	env.setPrefs(env.userID, func(p *notification.Preferences) { onlyCategory(p, true, true, false) })
	env.addLog(env.userID, env.clock().AddDate(0, 0, -2), poop.RatingGood)

	created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, []string{notification.TemplateMissedLogs}, templateIDs(created))
	assert.Nil(t, created[0].ExpiresAt)
}

func TestScheduleNotifications_NoMissedLogs(t *testing.T) {
	tests := []struct {
		name string
		logs []time.Duration // offsets before now
	}{
		{name: "no history"},
		{name: "logged today", logs: []time.Duration{9 * time.Hour}},
		{name: "yesterday but under 24h", logs: []time.Duration{20 * time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.setPrefs(env.userID, func(p *notification.Preferences) { onlyCategory(p, true, true, false) })
			for _, off := range tt.logs {
				env.addLog(env.userID, env.clock().Add(-off), poop.RatingGood)
			}

			created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
			require.NoError(t, err)
			assert.Empty(t, created)
		})
	}
}

func TestScheduleNotifications_StreakMilestone(t *testing.T) {
	tests := []struct {
		days int
		want bool
	}{
		{days: 2, want: false},
		{days: 4, want: false},
		{days: 5, want: true},
		{days: 6, want: false},
		{days: 10, want: true},
	}

	for _, tt := range tests {
		env := newTestEnv(t)
		env.setPrefs(env.userID, func(p *notification.Preferences) { onlyCategory(p, false, true, false) })
		logDaily(env, env.userID, tt.days, 12)

		created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
		require.NoError(t, err)
		if !tt.want {
			assert.Empty(t, created, "%d day streak", tt.days)
			continue
		}
		require.Len(t, created, 1, "%d day streak", tt.days)
		assert.Equal(t, notification.TemplateStreakAlert, created[0].TemplateID)
		assert.Contains(t, created[0].Message, fmt.Sprintf("%d day streak", tt.days))
	}
}

func TestScheduleNotifications_StreakCountsFromLatestLog(t *testing.T) {
	env := newTestEnv(t)
	env.setPrefs(env.userID, func(p *notification.Preferences) { onlyCategory(p, false, true, false) })

	// Five consecutive days ending three days ago, then a gap, then older logs.
	base := env.clock().AddDate(0, 0, -3)
	for i := 0; i < 5; i++ {
		env.addLog(env.userID, base.AddDate(0, 0, -i), poop.RatingGood)
	}
	env.addLog(env.userID, base.AddDate(0, 0, -7), poop.RatingGood)

	created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Contains(t, created[0].Message, "5 day streak")
}

func TestScheduleNotifications_ReminderAtMostCommonHour(t *testing.T) {
	env := newTestEnv(t)
	env.setPrefs(env.userID, func(p *notification.Preferences) { onlyCategory(p, true, false, false) })
	logDaily(env, env.userID, 5, 8)

	created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{notification.TemplateMissedLogs, notification.TemplateReminderGeneral}, templateIDs(created))

	for _, n := range created {
		if n.TemplateID != notification.TemplateReminderGeneral {
			continue
		}
		require.NotNil(t, n.ExpiresAt)
		assert.True(t, n.ExpiresAt.Equal(time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC)), "got %s", n.ExpiresAt)
		assert.Equal(t, notification.TypeReminder, n.Type)
	}
}

func TestScheduleNotifications_ReminderNeedsFiveLogs(t *testing.T) {
	env := newTestEnv(t)
	env.setPrefs(env.userID, func(p *notification.Preferences) { onlyCategory(p, true, false, false) })
	logDaily(env, env.userID, 4, 8)

	created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, []string{notification.TemplateMissedLogs}, templateIDs(created))
}

func TestScheduleNotifications_ReminderSkippedWhenLoggedToday(t *testing.T) {
	env := newTestEnv(t)
	env.setPrefs(env.userID, func(p *notification.Preferences) { onlyCategory(p, true, false, false) })
	logDaily(env, env.userID, 5, 8)
	env.addLog(env.userID, env.clock().Add(-time.Hour), poop.RatingGood)

	created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestScheduleNotifications_DoNotDisturb(t *testing.T) {
	tests := []struct {
		name         string
		start, end   string
		wantReminder bool
	}{
		{name: "wrapping window covers 08:00", start: "22:00", end: "09:00", wantReminder: false},
		{name: "window starts at 08:00", start: "08:00", end: "10:00", wantReminder: false},
		{name: "window ends at 08:00", start: "06:00", end: "08:00", wantReminder: true},
		{name: "window elsewhere", start: "12:00", end: "13:00", wantReminder: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.setPrefs(env.userID, func(p *notification.Preferences) {
				onlyCategory(p, true, false, false)
				p.DoNotDisturbStart = &tt.start
				p.DoNotDisturbEnd = &tt.end
			})
			logDaily(env, env.userID, 5, 8)

			created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReminder, containsTemplate(created, notification.TemplateReminderGeneral))
			assert.True(t, containsTemplate(created, notification.TemplateMissedLogs), "do-not-disturb only affects the reminder")
		})
	}
}

func TestScheduleNotifications_OvernightWindow(t *testing.T) {
	start, end := "22:00", "07:00"
	for hour, want := range map[int]bool{23: false, 12: true} {
		t.Run(fmt.Sprintf("candidate at %02d:00", hour), func(t *testing.T) {
			env := newTestEnv(t)
			env.setPrefs(env.userID, func(p *notification.Preferences) {
				onlyCategory(p, true, false, false)
				p.DoNotDisturbStart = &start
				p.DoNotDisturbEnd = &end
			})
			logDaily(env, env.userID, 5, hour)

			created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
			require.NoError(t, err)
			assert.Equal(t, want, containsTemplate(created, notification.TemplateReminderGeneral))
		})
	}
}

func TestScheduleNotifications_Tips(t *testing.T) {
	tests := []struct {
		name    string
		lastTip *time.Duration
		want    bool
	}{
		{name: "never had a tip", want: true},
		{name: "tip three days ago", lastTip: durationPtr(3 * 24 * time.Hour), want: false},
		{name: "tip eight days ago", lastTip: durationPtr(8 * 24 * time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.scheduler.SetRandSource(func() rand.Source { return rand.NewSource(3) })
			env.setPrefs(env.userID, func(p *notification.Preferences) { onlyCategory(p, false, false, true) })

			if tt.lastTip != nil {
				now := env.clock()
				env.setNow(now.Add(-*tt.lastTip))
				_, err := env.notifications.CreateFromTemplate(env.ctx, env.userID, "tip_fiber", nil, nil)
				require.NoError(t, err)
				env.setNow(now)
			}

			created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
			require.NoError(t, err)
			if !tt.want {
				assert.Empty(t, created)
				return
			}
			require.Len(t, created, 1)
			assert.Equal(t, notification.TypeTip, created[0].Type)
			assert.True(t, strings.HasPrefix(created[0].TemplateID, "tip_"))
		})
	}
}

func TestScheduleNotifications_CategoryGating(t *testing.T) {
	env := newTestEnv(t)
	env.setPrefs(env.userID, func(p *notification.Preferences) { onlyCategory(p, false, false, false) })
	logDaily(env, env.userID, 5, 8)

	created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Empty(t, created)
}

type failingLatestStore struct {
	store.NotificationStore
}

func (failingLatestStore) GetLatestNotification(ctx context.Context, userID uuid.UUID, t notification.NotificationType) (*notification.Notification, error) {
	return nil, errors.New("connection reset")
}

func TestScheduleNotifications_FailingCheckDoesNotStopOthers(t *testing.T) {
	env := newTestEnvWithStore(t, func(db *sqlite.DB) store.NotificationStore {
		return failingLatestStore{db}
	})
	env.addLog(env.userID, env.clock().AddDate(0, 0, -2), poop.RatingGood)

	created, err := env.scheduler.ScheduleNotifications(env.ctx, env.userID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tip")
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, []string{notification.TemplateMissedLogs}, templateIDs(created))
}

func TestScheduleAll_RunsForEveryUser(t *testing.T) {
	env := newTestEnv(t)
	other := env.newUser("other")
	for _, id := range []uuid.UUID{env.userID, other} {
		env.setPrefs(id, func(p *notification.Preferences) { onlyCategory(p, true, false, false) })
		env.addLog(id, env.clock().AddDate(0, 0, -2), poop.RatingGood)
	}

	total, err := env.scheduler.ScheduleAll(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, env.notificationsFor(other), 1)
}

func TestMostCommonHour_TieGoesToFirstSeen(t *testing.T) {
	at := func(hour int) *poop.Log {
		return &poop.Log{LoggedAt: time.Date(2025, 3, 1, hour, 0, 0, 0, time.UTC)}
	}

	assert.Equal(t, 14, mostCommonHour([]*poop.Log{at(14), at(8), at(8), at(14)}, time.UTC))
	assert.Equal(t, 8, mostCommonHour([]*poop.Log{at(8), at(14), at(14), at(8)}, time.UTC))
	assert.Equal(t, 21, mostCommonHour([]*poop.Log{at(7), at(21), at(21)}, time.UTC))
}

func containsTemplate(list []*notification.Notification, id string) bool {
	for _, n := range list {
		if n.TemplateID == id {
			return true
		}
	}
	return false
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
