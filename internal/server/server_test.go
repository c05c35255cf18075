package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"poopyPalsAPI/internal/app"
	"poopyPalsAPI/internal/catalog"
	"poopyPalsAPI/internal/config"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store/sqlite"
	"poopyPalsAPI/internal/types/poop"
	"poopyPalsAPI/internal/types/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	clients atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)

	cfg := config.Config{
		Port:          "0",
		Auth:          config.AuthConfig{DemoUserID: "demo-user"},
		Metrics:       config.MetricsConfig{User: "admin", Password: "secret"},
		Workers:       config.WorkerConfig{DispatchWorkers: 1},
		AllowedOrigin: "*",
	}
	a := app.Build(cfg, db, catalog.Default(), nil)
	require.NoError(t, a.SeedCatalog(t.Context()))
	t.Cleanup(func() { a.Close() })

	handler, _ := NewRouter(a)
	return &testServer{t: t, handler: handler}
}

// do sends each request from a distinct client so the rate limiter stays out
// of the way.
func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", s.clients.Add(1)))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestMetricsRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/logs", poop.CreateLogRequest{
		Duration: 6, Rating: poop.RatingGreat, Consistency: 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[poop.Log](t, rec)

	rec = s.do(http.MethodGet, "/api/v1/logs/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, decode[poop.Log](t, rec).Duration)

	rec = s.do(http.MethodGet, "/api/v1/logs?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[poop.LogListResponse](t, rec)
	assert.Len(t, list.Logs, 1)
	assert.Equal(t, 10, list.PageSize)

	rec = s.do(http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, true, stats["today_status"])
	assert.EqualValues(t, 1, stats["total_logs"])
}

func TestLogErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"invalid rating", http.MethodPost, "/api/v1/logs", map[string]any{"duration": 5, "rating": "meh", "consistency": 3}, http.StatusBadRequest},
		{"malformed id", http.MethodGet, "/api/v1/logs/abc", nil, http.StatusBadRequest},
		{"unknown log", http.MethodGet, "/api/v1/logs/00000000-0000-0000-0000-000000000001", nil, http.StatusNotFound},
		{"bad month", http.MethodGet, "/api/v1/stats/calendar?year=2025&month=13", nil, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/nothing", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestReminderRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/reminders", reminder.CreateReminderRequest{
		Title: "Morning", Frequency: reminder.FrequencyDaily, Time: "07:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[reminder.Reminder](t, rec)

	rec = s.do(http.MethodPut, "/api/v1/reminders/"+created.ID.String(), map[string]any{"time": "08:15"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "08:15", decode[reminder.Reminder](t, rec).Time)

	rec = s.do(http.MethodGet, "/api/v1/reminders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]reminder.Reminder](t, rec), 1)

	rec = s.do(http.MethodDelete, "/api/v1/reminders/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodDelete, "/api/v1/reminders/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/notifications/preferences", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[notification.Preferences](t, rec).PushEnabled)

	rec = s.do(http.MethodPut, "/api/v1/notifications/preferences", map[string]any{"do_not_disturb_start": "25:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/notifications/preferences", map[string]any{"tips": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[notification.Preferences](t, rec).Tips)

	rec = s.do(http.MethodPost, "/api/v1/notifications/register-device", map[string]any{"token": "abc", "platform": "ios"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[notification.UnreadCountResponse](t, rec).Count)

	rec = s.do(http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[notification.NotificationListResponse](t, rec).Notifications)
}

func TestChallengeRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/challenges", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.NotEmpty(t, all)

	rec = s.do(http.MethodPost, "/api/v1/challenges/assign", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/challenges/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/challenges/evaluate", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/achievements", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
