package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/reminder"

	"github.com/google/uuid"
)

type ReminderService struct {
	store    store.ReminderStore
	notifier Notifier
	loc      *time.Location
	now      clock
}

func NewReminderService(s store.ReminderStore, notifier Notifier, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderService{store: s, notifier: notifier, loc: loc, now: time.Now}
}

func (s *ReminderService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ReminderService) CreateReminder(ctx context.Context, userID uuid.UUID, req *reminder.CreateReminderRequest) (*reminder.Reminder, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	r := &reminder.Reminder{
		ID:         uuid.New(),
		UserID:     userID,
		Title:      req.Title,
		Message:    req.Message,
		Frequency:  req.Frequency,
		Time:       req.Time,
		DaysOfWeek: req.DaysOfWeek,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
	if r.DaysOfWeek == nil {
		r.DaysOfWeek = []int{}
	}
	if err := checkReminderDays(r); err != nil {
		return nil, err
	}

	if err := s.store.CreateReminder(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return r, nil
}

func (s *ReminderService) ListReminders(ctx context.Context, userID uuid.UUID) ([]*reminder.Reminder, error) {
	reminders, err := s.store.ListReminders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

func (s *ReminderService) UpdateReminder(ctx context.Context, userID, id uuid.UUID, req *reminder.UpdateReminderRequest) (*reminder.Reminder, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	r, err := s.store.GetReminder(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		r.Title = *req.Title
	}
	if req.Message != nil {
		r.Message = *req.Message
	}
	if req.Frequency != nil {
		r.Frequency = *req.Frequency
	}
	if req.Time != nil {
		r.Time = *req.Time
	}
	if req.DaysOfWeek != nil {
		r.DaysOfWeek = req.DaysOfWeek
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
	if err := checkReminderDays(r); err != nil {
		return nil, err
	}

	r.UpdatedAt = s.now()
	if err := s.store.UpdateReminder(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReminderService) DeleteReminder(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.DeleteReminder(ctx, userID, id)
}

// FireDueReminders emits a notification for every active reminder with an
// occurrence in (from, to] and returns how many fired.
func (s *ReminderService) FireDueReminders(ctx context.Context, from, to time.Time) (int, error) {
	reminders, err := s.store.ListActiveReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active reminders: %w", err)
	}

	fired := 0
	var errs []error
	for _, r := range reminders {
		at, due := r.DueBetween(from, to, s.loc)
		if !due {
			continue
		}

		_, err := s.notifier.CreateFromTemplate(ctx, r.UserID, notification.TemplateReminderCustom, map[string]any{
			"title":   r.Title,
			"message": r.Message,
		}, nil)
		if err != nil {
			log.Printf("Failed to fire reminder %s for user %s: %v", r.ID, r.UserID, err)
			errs = append(errs, err)
			continue
		}
		if err := s.store.MarkReminderFired(ctx, r.ID, at); err != nil {
			errs = append(errs, fmt.Errorf("failed to mark reminder %s fired: %w", r.ID, err))
			continue
		}
		fired++
	}

	if fired > 0 {
		log.Printf("Fired %d reminders", fired)
	}
	return fired, errors.Join(errs...)
}

func checkReminderDays(r *reminder.Reminder) error {
	if r.Frequency == reminder.FrequencyCustom && len(r.DaysOfWeek) == 0 {
		return fmt.Errorf("%w: custom reminders need at least one day of week", ErrValidation)
	}
	return nil
}
