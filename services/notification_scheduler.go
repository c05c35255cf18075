package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"poopyPalsAPI/internal/metrics"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/types/poop"
	"poopyPalsAPI/internal/types/streak"
	"poopyPalsAPI/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	scheduleLookbackDays = 30
	missedLogAfter       = 24 * time.Hour
	tipInterval          = 7 * 24 * time.Hour

	minLogsForStreakAlert = 3
	minStreakForAlert     = 3
	streakAlertEvery      = 5
	minLogsForReminder    = 5

	// scheduleAllParallelism caps concurrent per-user passes in ScheduleAll.
	scheduleAllParallelism = 4
)

type logLister interface {
	ListLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*poop.Log, error)
}

type userLister interface {
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// NotificationScheduler derives reminder, streak and tip notifications from a
// user's recent history.
type NotificationScheduler struct {
	notifications *NotificationService
	logs          logLister
	users         userLister
	loc           *time.Location
	now           clock
	source        randSource
}

func NewNotificationScheduler(notifications *NotificationService, logs logLister, users userLister, loc *time.Location) *NotificationScheduler {
	if loc == nil {
		loc = time.UTC
	}
	s := &NotificationScheduler{
		notifications: notifications,
		logs:          logs,
		users:         users,
		loc:           loc,
		now:           time.Now,
	}
	s.source = clockSeeded(func() time.Time { return s.now() })
	return s
}

func (s *NotificationScheduler) SetClock(now func() time.Time) {
	s.now = now
}

func (s *NotificationScheduler) SetRandSource(source func() rand.Source) {
	s.source = source
}

type scheduleCheck struct {
	name    string
	enabled bool
	run     func() (*notification.Notification, error)
}

// ScheduleNotifications runs every check for one user and returns the
// notifications created. A failing check does not stop the others; all
// failures come back joined.
func (s *NotificationScheduler) ScheduleNotifications(ctx context.Context, userID uuid.UUID) ([]*notification.Notification, error) {
	prefs, err := s.notifications.GetPreferences(ctx, userID)
	if err != nil {
		metrics.SchedulerRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	if !prefs.PushEnabled {
		metrics.SchedulerRuns.WithLabelValues("skipped").Inc()
		return []*notification.Notification{}, nil
	}

	now := s.now()
	logs, err := s.logs.ListLogs(ctx, userID, now.AddDate(0, 0, -scheduleLookbackDays), now)
	if err != nil {
		metrics.SchedulerRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load recent logs: %w", err)
	}

	checks := []scheduleCheck{
		{"missed_logs", prefs.Reminders, func() (*notification.Notification, error) {
			return s.checkMissedLogs(ctx, userID, logs, now)
		}},
		{"streak_alert", prefs.StreakAlerts, func() (*notification.Notification, error) {
			return s.checkStreak(ctx, userID, logs)
		}},
		{"reminder", prefs.Reminders, func() (*notification.Notification, error) {
			return s.checkReminder(ctx, userID, logs, prefs, now)
		}},
		{"tip", prefs.Tips, func() (*notification.Notification, error) {
			return s.checkTip(ctx, userID, now)
		}},
	}

	created := []*notification.Notification{}
	var errs []error
	for _, check := range checks {
		if !check.enabled {
			continue
		}
		n, err := check.run()
		if err != nil {
			log.Printf("Scheduler check %s failed for user %s: %v", check.name, userID, err)
			errs = append(errs, fmt.Errorf("%s: %w", check.name, err))
			continue
		}
		if n != nil {
			created = append(created, n)
		}
	}

	if err := errors.Join(errs...); err != nil {
		metrics.SchedulerRuns.WithLabelValues("error").Inc()
		return created, err
	}
	metrics.SchedulerRuns.WithLabelValues("success").Inc()
	return created, nil
}

// ScheduleAll runs the scheduler for every user. Per-user failures are
// logged and joined into the result.
func (s *NotificationScheduler) ScheduleAll(ctx context.Context) (int, error) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	results := make([]int, len(ids))
	errs := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scheduleAllParallelism)
	for i, id := range ids {
		g.Go(func() error {
			created, err := s.ScheduleNotifications(gctx, id)
			results[i] = len(created)
			if err != nil {
				errs[i] = fmt.Errorf("user %s: %w", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, n := range results {
		total += n
	}
	log.Printf("Scheduler created %d notifications for %d users", total, len(ids))
	return total, errors.Join(errs...)
}

func (s *NotificationScheduler) checkMissedLogs(ctx context.Context, userID uuid.UUID, logs []*poop.Log, now time.Time) (*notification.Notification, error) {
	if len(logs) == 0 {
		return nil, nil
	}
	today := now.In(s.loc)
	for _, l := range logs {
		if utils.SameDay(l.LoggedAt.In(s.loc), today) {
			return nil, nil
		}
	}
	if now.Sub(logs[0].LoggedAt) < missedLogAfter {
		return nil, nil
	}
	return s.notifications.CreateFromTemplate(ctx, userID, notification.TemplateMissedLogs, nil, nil)
}

func (s *NotificationScheduler) checkStreak(ctx context.Context, userID uuid.UUID, logs []*poop.Log) (*notification.Notification, error) {
	if len(logs) < minLogsForStreakAlert {
		return nil, nil
	}
	current := streak.FromLatest(streak.Days(loggedTimes(logs), s.loc))
	if current < minStreakForAlert || current%streakAlertEvery != 0 {
		return nil, nil
	}
	return s.notifications.CreateFromTemplate(ctx, userID, notification.TemplateStreakAlert, map[string]any{
		"streak": strconv.Itoa(current),
	}, nil)
}

func (s *NotificationScheduler) checkReminder(ctx context.Context, userID uuid.UUID, logs []*poop.Log, prefs *notification.Preferences, now time.Time) (*notification.Notification, error) {
	if len(logs) < minLogsForReminder {
		return nil, nil
	}

	today := now.In(s.loc)
	for _, l := range logs {
		if utils.SameDay(l.LoggedAt.In(s.loc), today) {
			return nil, nil
		}
	}

	hour := mostCommonHour(logs, s.loc)
	candidate := time.Date(today.Year(), today.Month(), today.Day()+1, hour, 0, 0, 0, s.loc)
	if prefs.InDoNotDisturb(candidate) {
		log.Printf("Reminder for user %s at %s falls in do-not-disturb, skipping", userID, candidate.Format("15:04"))
		return nil, nil
	}

	return s.notifications.CreateFromTemplate(ctx, userID, notification.TemplateReminderGeneral, nil, &candidate)
}

func (s *NotificationScheduler) checkTip(ctx context.Context, userID uuid.UUID, now time.Time) (*notification.Notification, error) {
	latest, err := s.notifications.LatestNotification(ctx, userID, notification.TypeTip)
	if err != nil {
		return nil, err
	}
	if latest != nil && now.Sub(latest.CreatedAt) <= tipInterval {
		return nil, nil
	}

	tmpl, err := s.notifications.RandomTemplate(ctx, notification.TypeTip, rand.New(s.source()))
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, nil
	}
	return s.notifications.CreateFromTemplate(ctx, userID, tmpl.ID, nil, nil)
}

// mostCommonHour returns the local hour with the most logs. Ties go to the
// hour seen first in the given order.
func mostCommonHour(logs []*poop.Log, loc *time.Location) int {
	counts := make(map[int]int)
	order := []int{}
	for _, l := range logs {
		h := l.LoggedAt.In(loc).Hour()
		if counts[h] == 0 {
			order = append(order, h)
		}
		counts[h]++
	}

	best, bestCount := 0, 0
	for _, h := range order {
		if counts[h] > bestCount {
			best, bestCount = h, counts[h]
		}
	}
	return best
}

func loggedTimes(logs []*poop.Log) []time.Time {
	times := make([]time.Time, len(logs))
	for i, l := range logs {
		times[i] = l.LoggedAt
	}
	return times
}
