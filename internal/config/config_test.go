package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "DATABASE_URL", "SQLITE_DIR", "TIMEZONE", "CATALOG_FILE",
		"CLERK_SECRET_KEY", "DEMO_USER_ID", "FCM_SERVICE_ACCOUNT_JSON", "FCM_CREDENTIALS_FILE",
		"METRICS_USER", "METRICS_PASS", "STARTUP_DELAY", "SCHEDULER_INTERVAL",
		"REMINDER_INTERVAL", "DISPATCH_INTERVAL", "DISPATCH_WORKERS", "ALLOWED_ORIGIN",
	} {
		t.Setenv(name, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data", cfg.SQLiteDir)
	assert.Equal(t, "demo-user", cfg.Auth.DemoUserID)
	assert.False(t, cfg.ClerkEnabled())
	assert.Equal(t, time.Hour, cfg.Workers.SchedulerInterval)
	assert.Equal(t, 5, cfg.Workers.DispatchWorkers)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("TIMEZONE", "Europe/Sofia")
	t.Setenv("CLERK_SECRET_KEY", "sk_test")
	t.Setenv("SCHEDULER_INTERVAL", "30m")
	t.Setenv("DISPATCH_WORKERS", "8")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.ClerkEnabled())
	assert.Equal(t, 30*time.Minute, cfg.Workers.SchedulerInterval)
	assert.Equal(t, 8, cfg.Workers.DispatchWorkers)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad duration", "REMINDER_INTERVAL", "soon"},
		{"bad integer", "DISPATCH_WORKERS", "many"},
		{"interval too short", "SCHEDULER_INTERVAL", "5s"},
		{"too many workers", "DISPATCH_WORKERS", "500"},
		{"unknown zone", "TIMEZONE", "Mars/Olympus"},
		{"non numeric port", "PORT", "http"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
