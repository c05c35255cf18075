package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPush struct {
	mu     sync.Mutex
	titles []string
	tokens int
}

func (p *recordingPush) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.titles = append(p.titles, title)
	p.tokens += len(tokens)
	return nil
}

func (p *recordingPush) sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.titles...)
}

func TestCreateFromTemplate_RendersPlaceholders(t *testing.T) {
	env := newTestEnv(t)

	n, err := env.notifications.CreateFromTemplate(env.ctx, env.userID, notification.TemplateStreakAlert, map[string]any{"streak": 10}, nil)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "Streak milestone!", n.Title)
	assert.Equal(t, "You're on a 10 day streak. Keep it going!", n.Message)
	assert.Equal(t, notification.TypeStreak, n.Type)
	assert.Equal(t, "flame", n.Icon)
	assert.False(t, n.IsRead)
}

func TestCreateFromTemplate_UnknownTemplate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.notifications.CreateFromTemplate(env.ctx, env.userID, "nope", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateNotification_PreferenceFilters(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *notification.Preferences)
		template string
		want     bool
	}{
		{"in-app disabled", func(p *notification.Preferences) { p.InAppEnabled = false }, notification.TemplateMissedLogs, false},
		{"reminders disabled", func(p *notification.Preferences) { p.Reminders = false }, notification.TemplateMissedLogs, false},
		{"streak alerts disabled", func(p *notification.Preferences) { p.StreakAlerts = false }, notification.TemplateStreakAlert, false},
		{"tips disabled", func(p *notification.Preferences) { p.Tips = false }, "tip_fiber", false},
		{"other category disabled", func(p *notification.Preferences) { p.Tips = false }, notification.TemplateMissedLogs, true},
		{"push disabled keeps in-app", func(p *notification.Preferences) { p.PushEnabled = false }, notification.TemplateMissedLogs, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.setPrefs(env.userID, tt.mutate)

			n, err := env.notifications.CreateFromTemplate(env.ctx, env.userID, tt.template, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n != nil)
		})
	}
}

func TestMarkAsRead_IsOneWay(t *testing.T) {
	env := newTestEnv(t)
	n, err := env.notifications.CreateFromTemplate(env.ctx, env.userID, notification.TemplateMissedLogs, nil, nil)
	require.NoError(t, err)

	count, err := env.notifications.GetUnreadCount(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, env.notifications.MarkAsRead(env.ctx, env.userID, n.ID))
	err = env.notifications.MarkAsRead(env.ctx, env.userID, n.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	count, err = env.notifications.GetUnreadCount(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMarkAsRead_OtherUsersNotification(t *testing.T) {
	env := newTestEnv(t)
	other := env.newUser("other")
	n, err := env.notifications.CreateFromTemplate(env.ctx, other, notification.TemplateMissedLogs, nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, env.notifications.MarkAsRead(env.ctx, env.userID, n.ID), store.ErrNotFound)
	assert.ErrorIs(t, env.notifications.DeleteNotification(env.ctx, env.userID, n.ID), store.ErrNotFound)
}

func TestMarkAllAsReadAndPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.setNow(env.clock().Add(time.Minute))
		_, err := env.notifications.CreateFromTemplate(env.ctx, env.userID, notification.TemplateMissedLogs, nil, nil)
		require.NoError(t, err)
	}

	page, err := env.notifications.GetNotifications(env.ctx, env.userID, 2, 2, false)
	require.NoError(t, err)
	assert.Len(t, page.Notifications, 2)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 5, page.UnreadCount)
	assert.Equal(t, 2, page.Page)

	updated, err := env.notifications.MarkAllAsRead(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated)

	unread, err := env.notifications.GetNotifications(env.ctx, env.userID, 1, 20, true)
	require.NoError(t, err)
	assert.Empty(t, unread.Notifications)
	assert.Equal(t, 5, unread.TotalCount)
}

func TestGetPreferences_CreatesDefaults(t *testing.T) {
	env := newTestEnv(t)

	prefs, err := env.notifications.GetPreferences(env.ctx, env.userID)
	require.NoError(t, err)
	assert.True(t, prefs.PushEnabled)
	assert.True(t, prefs.InAppEnabled)
	assert.True(t, prefs.Reminders)
	assert.True(t, prefs.StreakAlerts)
	assert.True(t, prefs.Achievements)
	assert.True(t, prefs.Tips)
	assert.Nil(t, prefs.DoNotDisturbStart)
	assert.Empty(t, prefs.DeviceTokens)

	stored, err := env.store.GetPreferences(env.ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, prefs.UserID, stored.UserID)
}

func TestUpdatePreferences(t *testing.T) {
	strPtr := func(s string) *string { return &s }
	boolPtr := func(b bool) *bool { return &b }

	env := newTestEnv(t)

	prefs, err := env.notifications.UpdatePreferences(env.ctx, env.userID, &notification.UpdatePreferencesRequest{
		Tips:              boolPtr(false),
		DoNotDisturbStart: strPtr("22:30"),
		DoNotDisturbEnd:   strPtr("07:00"),
	})
	require.NoError(t, err)
	assert.False(t, prefs.Tips)
	assert.True(t, prefs.Reminders, "untouched fields keep their value")
	require.NotNil(t, prefs.DoNotDisturbStart)
	assert.Equal(t, "22:30", *prefs.DoNotDisturbStart)

	_, err = env.notifications.UpdatePreferences(env.ctx, env.userID, &notification.UpdatePreferencesRequest{
		DoNotDisturbStart: strPtr("25:00"),
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.notifications.UpdatePreferences(env.ctx, env.userID, &notification.UpdatePreferencesRequest{
		DoNotDisturbEnd: strPtr(""),
	})
	assert.ErrorIs(t, err, ErrValidation, "clearing one bound leaves a half window")

	prefs, err = env.notifications.UpdatePreferences(env.ctx, env.userID, &notification.UpdatePreferencesRequest{
		DoNotDisturbStart: strPtr(""),
		DoNotDisturbEnd:   strPtr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, prefs.DoNotDisturbStart)
	assert.Nil(t, prefs.DoNotDisturbEnd)
}

func TestRegisterDevice_Deduplicates(t *testing.T) {
	env := newTestEnv(t)

	req := &notification.RegisterDeviceRequest{Token: "tok-1", Platform: "ios"}
	require.NoError(t, env.notifications.RegisterDevice(env.ctx, env.userID, req))
	require.NoError(t, env.notifications.RegisterDevice(env.ctx, env.userID, req))
	require.NoError(t, env.notifications.RegisterDevice(env.ctx, env.userID, &notification.RegisterDeviceRequest{Token: "tok-2", Platform: "android"}))

	prefs, err := env.notifications.GetPreferences(env.ctx, env.userID)
	require.NoError(t, err)
	require.Len(t, prefs.DeviceTokens, 2)
	assert.Equal(t, "tok-1", prefs.DeviceTokens[0].Token)

	err = env.notifications.RegisterDevice(env.ctx, env.userID, &notification.RegisterDeviceRequest{Token: "tok-3", Platform: "symbian"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDispatcher_PushesImmediateNotifications(t *testing.T) {
	env := newTestEnv(t)
	push := &recordingPush{}
	env.notifications.SetPushProvider(push)
	require.NoError(t, env.notifications.RegisterDevice(env.ctx, env.userID, &notification.RegisterDeviceRequest{Token: "tok", Platform: "web"}))

	n, err := env.notifications.CreateFromTemplate(env.ctx, env.userID, notification.TemplateMissedLogs, nil, nil)
	require.NoError(t, err)
	env.notifications.Dispatcher().Wait()

	assert.Equal(t, []string{n.Title}, push.sent())

	due, err := env.store.ListDueNotifications(env.ctx, env.clock().AddDate(1, 0, 0), 10)
	require.NoError(t, err)
	assert.Empty(t, due, "immediate notifications never show up in the sweep")
}

func TestDispatcher_SweepProcessesDueNotificationsOnce(t *testing.T) {
	env := newTestEnv(t)
	push := &recordingPush{}
	env.notifications.SetPushProvider(push)
	require.NoError(t, env.notifications.RegisterDevice(env.ctx, env.userID, &notification.RegisterDeviceRequest{Token: "tok", Platform: "android"}))

	later := env.clock().Add(2 * time.Hour)
	n, err := env.notifications.CreateFromTemplate(env.ctx, env.userID, notification.TemplateReminderGeneral, nil, &later)
	require.NoError(t, err)
	env.notifications.Dispatcher().Wait()
	assert.Empty(t, push.sent(), "scheduled notifications wait for the sweep")

	processed, err := env.notifications.Dispatcher().ProcessDueNotifications(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed, "not due yet")

	env.setNow(later)
	processed, err = env.notifications.Dispatcher().ProcessDueNotifications(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{n.Title}, push.sent())

	processed, err = env.notifications.Dispatcher().ProcessDueNotifications(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestDispatcher_StopIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.notifications.Stop()
	env.notifications.Stop()

	// Queued after stop: stored but never dispatched, and Wait does not hang.
	_, err := env.notifications.CreateFromTemplate(env.ctx, env.userID, notification.TemplateMissedLogs, nil, nil)
	require.NoError(t, err)
	env.notifications.Dispatcher().Wait()
}
