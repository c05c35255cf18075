package notification

import (
	"time"

	"github.com/google/uuid"
)

type CreateNotificationRequest struct {
	UserID     uuid.UUID      `json:"user_id" validate:"required"`
	TemplateID string         `json:"template_id" validate:"required"`
	Data       map[string]any `json:"data"`
	// ScheduledFor defers delivery to the dispatcher sweep.
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

type UpdatePreferencesRequest struct {
	PushEnabled  *bool `json:"push_enabled,omitempty"`
	EmailEnabled *bool `json:"email_enabled,omitempty"`
	InAppEnabled *bool `json:"in_app_enabled,omitempty"`
	Reminders    *bool `json:"reminders,omitempty"`
	StreakAlerts *bool `json:"streak_alerts,omitempty"`
	Achievements *bool `json:"achievements,omitempty"`
	Tips         *bool `json:"tips,omitempty"`
	// An empty string clears the bound.
	DoNotDisturbStart *string `json:"do_not_disturb_start,omitempty" validate:"omitempty,datetime=15:04"`
	DoNotDisturbEnd   *string `json:"do_not_disturb_end,omitempty" validate:"omitempty,datetime=15:04"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
	TotalCount    int             `json:"total_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type ScheduleResponse struct {
	Created []*Notification `json:"created"`
}
