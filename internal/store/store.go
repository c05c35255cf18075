package store

import (
	"context"
	"errors"
	"time"

	"poopyPalsAPI/internal/achievement"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/types/challenge"
	"poopyPalsAPI/internal/types/poop"
	"poopyPalsAPI/internal/types/reminder"
	"poopyPalsAPI/internal/user"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type UserStore interface {
	// EnsureUser returns the user with externalID, creating it when missing.
	EnsureUser(ctx context.Context, externalID, username string) (*user.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdateUsername(ctx context.Context, id uuid.UUID, username string) (*user.User, error)
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
	AddCoins(ctx context.Context, id uuid.UUID, amount int) error
}

type LogStore interface {
	CreateLog(ctx context.Context, l *poop.Log) error
	GetLog(ctx context.Context, userID, id uuid.UUID) (*poop.Log, error)
	// ListLogs returns logs with logged_at in [from, to], newest first.
	ListLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*poop.Log, error)
	ListRecentLogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*poop.Log, error)
}

type ChallengeStore interface {
	UpsertChallenge(ctx context.Context, c *challenge.Challenge) error
	ListChallenges(ctx context.Context, activeOnly bool) ([]*challenge.Challenge, error)
	GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
	ListUserChallenges(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*challenge.UserChallengeWithChallenge, error)
	CreateUserChallenge(ctx context.Context, uc *challenge.UserChallenge) error
	// AssignUserChallenge inserts uc only while the user holds fewer than
	// maxActive incomplete assignments of type t and none for the same
	// challenge. The check and insert are atomic per user. It reports
	// whether the row was inserted.
	AssignUserChallenge(ctx context.Context, uc *challenge.UserChallenge, t challenge.ChallengeType, maxActive int) (bool, error)
	// SaveUserChallengeProgress writes progress, and completion when
	// completedAt is set, only if the row is still incomplete with the
	// expected progress. It reports whether the row was updated.
	SaveUserChallengeProgress(ctx context.Context, id uuid.UUID, expected, progress int, completedAt *time.Time) (bool, error)
	CountCompletedChallenges(ctx context.Context, userID uuid.UUID) (int, error)
}

type AchievementStore interface {
	UpsertAchievement(ctx context.Context, a *achievement.Achievement) error
	ListAchievementsWithStatus(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithStatus, error)
	// UnlockAchievement reports false when it was already unlocked.
	UnlockAchievement(ctx context.Context, userID, achievementID uuid.UUID, at time.Time) (bool, error)
}

type NotificationStore interface {
	UpsertTemplate(ctx context.Context, t *notification.Template) error
	GetTemplate(ctx context.Context, id string) (*notification.Template, error)
	ListTemplatesByType(ctx context.Context, t notification.NotificationType) ([]*notification.Template, error)

	CreateNotification(ctx context.Context, n *notification.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]*notification.Notification, error)
	CountNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) (int, error)
	GetLatestNotification(ctx context.Context, userID uuid.UUID, t notification.NotificationType) (*notification.Notification, error)
	// MarkNotificationRead returns ErrNotFound unless an unread row matched.
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteNotification(ctx context.Context, userID, id uuid.UUID) error
	// ListDueNotifications returns unprocessed notifications whose
	// expires_at is at or before the given time, oldest first.
	ListDueNotifications(ctx context.Context, before time.Time, limit int) ([]*notification.Notification, error)
	MarkNotificationProcessed(ctx context.Context, id uuid.UUID, at time.Time) error

	GetPreferences(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error)
	SavePreferences(ctx context.Context, p *notification.Preferences) error
}

type ReminderStore interface {
	CreateReminder(ctx context.Context, r *reminder.Reminder) error
	GetReminder(ctx context.Context, userID, id uuid.UUID) (*reminder.Reminder, error)
	ListReminders(ctx context.Context, userID uuid.UUID) ([]*reminder.Reminder, error)
	ListActiveReminders(ctx context.Context) ([]*reminder.Reminder, error)
	UpdateReminder(ctx context.Context, r *reminder.Reminder) error
	DeleteReminder(ctx context.Context, userID, id uuid.UUID) error
	MarkReminderFired(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Store is the full persistence surface used by the services.
type Store interface {
	UserStore
	LogStore
	ChallengeStore
	AchievementStore
	NotificationStore
	ReminderStore

	Ping(ctx context.Context) error
	Close() error
}
