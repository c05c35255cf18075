package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"poopyPalsAPI/internal/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.NotEmpty(t, c.Challenges)
	require.NotEmpty(t, c.Achievements)

	ids := map[string]bool{}
	for _, tmpl := range c.TemplateModels() {
		ids[tmpl.ID] = true
	}
	for _, id := range []string{
		notification.TemplateMissedLogs,
		notification.TemplateStreakAlert,
		notification.TemplateReminderGeneral,
		notification.TemplateReminderCustom,
		notification.TemplateChallengeCompleted,
		notification.TemplateAchievementUnlocked,
	} {
		assert.True(t, ids[id], "missing template %s", id)
	}
}

func TestModelsUseStableIDs(t *testing.T) {
	c := Default()
	models := c.ChallengeModels()
	require.Len(t, models, len(c.Challenges))
	assert.Equal(t, ChallengeID(c.Challenges[0].Key), models[0].ID)
	assert.Equal(t, ChallengeID("daily_log"), ChallengeID("daily_log"))
	assert.NotEqual(t, ChallengeID("x"), AchievementID("x"))
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"duplicate challenge", `
[[challenge]]
key = "a"
[challenge.condition]
type = "logCount"
target = 1

[[challenge]]
key = "a"
[challenge.condition]
type = "logCount"
target = 1
`},
		{"non positive target", `
[[challenge]]
key = "a"
[challenge.condition]
type = "logCount"
target = 0
`},
		{"unknown template type", `
[[template]]
id = "x"
type = "promo"
`},
		{"not toml", `[[challenge`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[achievement]]
key = "first_log"
name = "First"
criteria_type = "logCount"
criteria_value = 1
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Achievements, 1)
	assert.Equal(t, AchievementID("first_log"), c.AchievementModels()[0].ID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
