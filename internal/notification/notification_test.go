package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTemplateRender(t *testing.T) {
	tmpl := &Template{
		TitleTemplate:   "{{days}} day streak",
		MessageTemplate: "Keep going, {{name}}! {{unknown}}",
	}

	title, message := tmpl.Render(map[string]any{"days": 5, "name": "Sam"})
	assert.Equal(t, "5 day streak", title)
	assert.Equal(t, "Keep going, Sam! {{unknown}}", message)

	title, _ = tmpl.Render(nil)
	assert.Equal(t, "{{days}} day streak", title)
}

func TestInDoNotDisturb(t *testing.T) {
	start, end := "22:00", "07:00"
	prefs := DefaultPreferences(uuid.New())
	at := func(h, m int) time.Time { return time.Date(2025, 3, 12, h, m, 0, 0, time.UTC) }

	assert.False(t, prefs.InDoNotDisturb(at(23, 0)), "no window set")

	prefs.DoNotDisturbStart, prefs.DoNotDisturbEnd = &start, &end
	assert.True(t, prefs.InDoNotDisturb(at(22, 0)))
	assert.True(t, prefs.InDoNotDisturb(at(23, 30)), "23:30 falls inside a window that wraps midnight")
	assert.True(t, prefs.InDoNotDisturb(at(3, 0)))
	assert.False(t, prefs.InDoNotDisturb(at(7, 0)))
	assert.False(t, prefs.InDoNotDisturb(at(12, 0)))

	bad := "nope"
	prefs.DoNotDisturbStart = &bad
	assert.False(t, prefs.InDoNotDisturb(at(23, 0)))
}

func TestAllowsType(t *testing.T) {
	prefs := DefaultPreferences(uuid.New())
	prefs.Tips = false
	prefs.StreakAlerts = false

	assert.False(t, prefs.AllowsType(TypeTip))
	assert.False(t, prefs.AllowsType(TypeStreak))
	assert.True(t, prefs.AllowsType(TypeReminder))
	assert.True(t, prefs.AllowsType(TypeAchievement))
	assert.True(t, prefs.AllowsType(TypeSystem))
}

func TestNotificationTypeValid(t *testing.T) {
	assert.True(t, TypeTip.Valid())
	assert.False(t, NotificationType("promo").Valid())
}
