package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"poopyPalsAPI/internal/metrics"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

const templateCacheSize = 128

type NotificationService struct {
	store      store.NotificationStore
	dispatcher *NotificationDispatcher
	templates  *lru.Cache
	now        clock
}

func NewNotificationService(s store.NotificationStore, workers int) *NotificationService {
	cache, err := lru.New(templateCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}

	service := &NotificationService{
		store:     s,
		templates: cache,
		now:       time.Now,
	}
	service.dispatcher = NewNotificationDispatcher(service, workers)
	return service
}

// SetPushProvider injects the push backend, e.g. FCM.
func (s *NotificationService) SetPushProvider(provider PushNotificationProvider) {
	s.dispatcher.SetPushProvider(provider)
}

func (s *NotificationService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *NotificationService) Dispatcher() *NotificationDispatcher {
	return s.dispatcher
}

// Stop drains the dispatcher.
func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}

func (s *NotificationService) InitializeTemplates(ctx context.Context, templates []*notification.Template) error {
	for _, t := range templates {
		if err := s.store.UpsertTemplate(ctx, t); err != nil {
			return err
		}
	}
	s.templates.Purge()
	log.Printf("Initialized %d notification templates", len(templates))
	return nil
}

func (s *NotificationService) CreateFromTemplate(ctx context.Context, userID uuid.UUID, templateID string, data map[string]any, scheduledFor *time.Time) (*notification.Notification, error) {
	return s.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:       userID,
		TemplateID:   templateID,
		Data:         data,
		ScheduledFor: scheduledFor,
	})
}

// CreateNotification renders the template and stores the result. It returns
// nil without error when the user's preferences filter the notification out.
func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	template, err := s.getTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template %s: %w", req.TemplateID, err)
	}

	prefs, err := s.GetPreferences(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !prefs.InAppEnabled {
		log.Printf("In-app notifications disabled for user %s, skipping %s", req.UserID, req.TemplateID)
		return nil, nil
	}
	if !prefs.AllowsType(template.Type) {
		log.Printf("Notification type %s disabled for user %s", template.Type, req.UserID)
		return nil, nil
	}

	title, message := template.Render(req.Data)
	notif := &notification.Notification{
		ID:         uuid.New(),
		UserID:     req.UserID,
		TemplateID: template.ID,
		Type:       template.Type,
		Title:      title,
		Message:    message,
		Icon:       template.Icon,
		Action:     template.Action,
		Data:       req.Data,
		ExpiresAt:  req.ScheduledFor,
		CreatedAt:  s.now(),
	}

	if err := s.store.CreateNotification(ctx, notif); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(notif.Type)).Inc()

	if req.ScheduledFor == nil {
		s.dispatcher.DispatchNotification(ctx, notif, prefs)
	}

	return notif, nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	offset := (page - 1) * pageSize

	notifications, err := s.store.ListNotifications(ctx, userID, pageSize, offset, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	unreadCount, err := s.store.CountNotifications(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	totalCount, err := s.store.CountNotifications(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	return &notification.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unreadCount,
		TotalCount:    totalCount,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.store.CountNotifications(ctx, userID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}

// MarkAsRead fails with store.ErrNotFound when the notification is missing or
// already read; there is no way back to unread.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.store.MarkNotificationRead(ctx, userID, notificationID)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

func (s *NotificationService) DeleteNotification(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.store.DeleteNotification(ctx, userID, notificationID)
}

// GetPreferences returns the stored preferences, creating the defaults the
// first time.
func (s *NotificationService) GetPreferences(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	prefs = notification.DefaultPreferences(userID)
	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to create preferences: %w", err)
	}
	return prefs, nil
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, userID uuid.UUID, req *notification.UpdatePreferencesRequest) (*notification.Preferences, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	apply := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&prefs.PushEnabled, req.PushEnabled)
	apply(&prefs.EmailEnabled, req.EmailEnabled)
	apply(&prefs.InAppEnabled, req.InAppEnabled)
	apply(&prefs.Reminders, req.Reminders)
	apply(&prefs.StreakAlerts, req.StreakAlerts)
	apply(&prefs.Achievements, req.Achievements)
	apply(&prefs.Tips, req.Tips)

	if req.DoNotDisturbStart != nil {
		prefs.DoNotDisturbStart = emptyToNil(*req.DoNotDisturbStart)
	}
	if req.DoNotDisturbEnd != nil {
		prefs.DoNotDisturbEnd = emptyToNil(*req.DoNotDisturbEnd)
	}
	if (prefs.DoNotDisturbStart == nil) != (prefs.DoNotDisturbEnd == nil) {
		return nil, fmt.Errorf("%w: do-not-disturb needs both start and end", ErrValidation)
	}

	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return prefs, nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, req *notification.RegisterDeviceRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	found := false
	for i, token := range prefs.DeviceTokens {
		if token.Token == req.Token {
			prefs.DeviceTokens[i].LastUsed = now
			prefs.DeviceTokens[i].Platform = req.Platform
			found = true
			break
		}
	}
	if !found {
		prefs.DeviceTokens = append(prefs.DeviceTokens, notification.DeviceToken{
			Token:    req.Token,
			Platform: req.Platform,
			AddedAt:  now,
			LastUsed: now,
		})
	}

	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// LatestNotification returns nil when the user has no notification of type t.
func (s *NotificationService) LatestNotification(ctx context.Context, userID uuid.UUID, t notification.NotificationType) (*notification.Notification, error) {
	n, err := s.store.GetLatestNotification(ctx, userID, t)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest %s notification: %w", t, err)
	}
	return n, nil
}

// RandomTemplate picks a template of type t uniformly with rng. It returns
// nil when no template of that type exists.
func (s *NotificationService) RandomTemplate(ctx context.Context, t notification.NotificationType, rng *rand.Rand) (*notification.Template, error) {
	templates, err := s.templatesByType(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, nil
	}
	return templates[rng.Intn(len(templates))], nil
}

func (s *NotificationService) getTemplate(ctx context.Context, id string) (*notification.Template, error) {
	if cached, ok := s.templates.Get(id); ok {
		return cached.(*notification.Template), nil
	}
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	s.templates.Add(id, t)
	return t, nil
}

func (s *NotificationService) templatesByType(ctx context.Context, t notification.NotificationType) ([]*notification.Template, error) {
	key := "type:" + string(t)
	if cached, ok := s.templates.Get(key); ok {
		return cached.([]*notification.Template), nil
	}
	templates, err := s.store.ListTemplatesByType(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s templates: %w", t, err)
	}
	s.templates.Add(key, templates)
	return templates, nil
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
