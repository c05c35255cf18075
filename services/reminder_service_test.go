package services

import (
	"testing"
	"time"

	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/reminder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReminder_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  reminder.CreateReminderRequest
	}{
		{"missing title", reminder.CreateReminderRequest{Frequency: reminder.FrequencyDaily, Time: "08:00"}},
		{"bad time", reminder.CreateReminderRequest{Title: "x", Frequency: reminder.FrequencyDaily, Time: "8am"}},
		{"unknown frequency", reminder.CreateReminderRequest{Title: "x", Frequency: "hourly", Time: "08:00"}},
		{"day out of range", reminder.CreateReminderRequest{Title: "x", Frequency: reminder.FrequencyCustom, Time: "08:00", DaysOfWeek: []int{7}}},
		{"custom without days", reminder.CreateReminderRequest{Title: "x", Frequency: reminder.FrequencyCustom, Time: "08:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reminders.CreateReminder(env.ctx, env.userID, &tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestReminderCRUD(t *testing.T) {
	env := newTestEnv(t)

	r, err := env.reminders.CreateReminder(env.ctx, env.userID, &reminder.CreateReminderRequest{
		Title:     "Morning",
		Message:   "Time to check in",
		Frequency: reminder.FrequencyDaily,
		Time:      "07:30",
	})
	require.NoError(t, err)
	assert.True(t, r.IsActive)
	assert.Empty(t, r.DaysOfWeek)

	title := "Evening"
	inactive := false
	updated, err := env.reminders.UpdateReminder(env.ctx, env.userID, r.ID, &reminder.UpdateReminderRequest{
		Title:    &title,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Evening", updated.Title)
	assert.Equal(t, "07:30", updated.Time)
	assert.False(t, updated.IsActive)

	custom := reminder.FrequencyCustom
	_, err = env.reminders.UpdateReminder(env.ctx, env.userID, r.ID, &reminder.UpdateReminderRequest{Frequency: &custom})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := env.reminders.ListReminders(env.ctx, env.userID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = env.reminders.UpdateReminder(env.ctx, env.userID, uuid.New(), &reminder.UpdateReminderRequest{Title: &title})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, env.reminders.DeleteReminder(env.ctx, env.userID, r.ID))
	assert.ErrorIs(t, env.reminders.DeleteReminder(env.ctx, env.userID, r.ID), store.ErrNotFound)
}

func TestFireDueReminders(t *testing.T) {
	env := newTestEnv(t)

	daily, err := env.reminders.CreateReminder(env.ctx, env.userID, &reminder.CreateReminderRequest{
		Title: "Check in", Message: "How did it go?", Frequency: reminder.FrequencyDaily, Time: "09:30",
	})
	require.NoError(t, err)
	// Wednesday is 3; this one should not fire today.
	_, err = env.reminders.CreateReminder(env.ctx, env.userID, &reminder.CreateReminderRequest{
		Title: "Weekend", Frequency: reminder.FrequencyCustom, Time: "09:30", DaysOfWeek: []int{0, 6},
	})
	require.NoError(t, err)

	now := env.clock() // 10:00
	fired, err := env.reminders.FireDueReminders(env.ctx, now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	notifs := env.notificationsFor(env.userID)
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.TemplateReminderCustom, notifs[0].TemplateID)
	assert.Equal(t, "Check in", notifs[0].Title)
	assert.Equal(t, "How did it go?", notifs[0].Message)

	// An overlapping sweep does not fire the same occurrence again.
	fired, err = env.reminders.FireDueReminders(env.ctx, now.Add(-2*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, 0, fired)

	stored, err := env.store.GetReminder(env.ctx, env.userID, daily.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastFiredAt)
	assert.True(t, stored.LastFiredAt.Equal(time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)))
}
