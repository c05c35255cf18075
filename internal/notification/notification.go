package notification

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"poopyPalsAPI/utils"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TypeAchievement NotificationType = "achievement"
	TypeStreak      NotificationType = "streak"
	TypeReminder    NotificationType = "reminder"
	TypeSystem      NotificationType = "system"
	TypeTip         NotificationType = "tip"
)

func (t NotificationType) Valid() bool {
	switch t {
	case TypeAchievement, TypeStreak, TypeReminder, TypeSystem, TypeTip:
		return true
	}
	return false
}

// Template ids referenced by the services.
const (
	TemplateMissedLogs          = "missed_logs"
	TemplateStreakAlert         = "streak_alert"
	TemplateReminderGeneral     = "reminder_general"
	TemplateReminderCustom      = "reminder_custom"
	TemplateChallengeCompleted  = "challenge_completed"
	TemplateAchievementUnlocked = "achievement_unlocked"
)

// Notification is created by the scheduler or a direct trigger. A non-nil
// ExpiresAt marks it as scheduled for that time until the dispatcher sweep
// sets Processed.
type Notification struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	UserID      uuid.UUID        `json:"user_id" db:"user_id"`
	TemplateID  string           `json:"template_id,omitempty" db:"template_id"`
	Type        NotificationType `json:"type" db:"type"`
	Title       string           `json:"title" db:"title"`
	Message     string           `json:"message" db:"message"`
	Icon        string           `json:"icon,omitempty" db:"icon"`
	Action      string           `json:"action,omitempty" db:"action"`
	Data        map[string]any   `json:"data,omitempty" db:"data"`
	IsRead      bool             `json:"is_read" db:"is_read"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	Processed   bool             `json:"processed" db:"processed"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

type Template struct {
	ID              string           `json:"id" db:"id" toml:"id"`
	Type            NotificationType `json:"type" db:"type" toml:"type"`
	TitleTemplate   string           `json:"title_template" db:"title_template" toml:"title"`
	MessageTemplate string           `json:"message_template" db:"message_template" toml:"message"`
	Icon            string           `json:"icon,omitempty" db:"icon" toml:"icon"`
	Action          string           `json:"action,omitempty" db:"action" toml:"action"`
}

// Render substitutes {{key}} placeholders in title and message. Unknown
// placeholders are left as they are.
func (t *Template) Render(data map[string]any) (string, string) {
	return render(t.TitleTemplate, data), render(t.MessageTemplate, data)
}

func render(template string, data map[string]any) string {
	if len(data) == 0 {
		return template
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", fmt.Sprintf("%v", data[k]))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

type DeviceToken struct {
	Token    string    `json:"token"`
	Platform string    `json:"platform"` // ios, android, web
	AddedAt  time.Time `json:"added_at"`
	LastUsed time.Time `json:"last_used"`
}

type Preferences struct {
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	PushEnabled  bool      `json:"push_enabled" db:"push_enabled"`
	EmailEnabled bool      `json:"email_enabled" db:"email_enabled"`
	InAppEnabled bool      `json:"in_app_enabled" db:"in_app_enabled"`

	Reminders    bool `json:"reminders" db:"reminders"`
	StreakAlerts bool `json:"streak_alerts" db:"streak_alerts"`
	Achievements bool `json:"achievements" db:"achievements"`
	Tips         bool `json:"tips" db:"tips"`

	// HH:MM, local time. The window wraps midnight when start > end.
	DoNotDisturbStart *string `json:"do_not_disturb_start,omitempty" db:"do_not_disturb_start"`
	DoNotDisturbEnd   *string `json:"do_not_disturb_end,omitempty" db:"do_not_disturb_end"`

	DeviceTokens []DeviceToken `json:"device_tokens" db:"device_tokens"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

func DefaultPreferences(userID uuid.UUID) *Preferences {
	return &Preferences{
		UserID:       userID,
		PushEnabled:  true,
		EmailEnabled: true,
		InAppEnabled: true,
		Reminders:    true,
		StreakAlerts: true,
		Achievements: true,
		Tips:         true,
		DeviceTokens: []DeviceToken{},
	}
}

// AllowsType reports whether the category toggle for t is on.
func (p *Preferences) AllowsType(t NotificationType) bool {
	switch t {
	case TypeReminder:
		return p.Reminders
	case TypeStreak:
		return p.StreakAlerts
	case TypeAchievement:
		return p.Achievements
	case TypeTip:
		return p.Tips
	default:
		return true
	}
}

func (p *Preferences) HasDoNotDisturb() bool {
	return p.DoNotDisturbStart != nil && p.DoNotDisturbEnd != nil &&
		*p.DoNotDisturbStart != "" && *p.DoNotDisturbEnd != ""
}

// InDoNotDisturb reports whether t's wall clock lies inside the window,
// start inclusive and end exclusive. A malformed window suppresses nothing.
func (p *Preferences) InDoNotDisturb(t time.Time) bool {
	if !p.HasDoNotDisturb() {
		return false
	}
	in, err := utils.InClockWindow(t, *p.DoNotDisturbStart, *p.DoNotDisturbEnd)
	if err != nil {
		return false
	}
	return in
}
