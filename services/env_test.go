package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"poopyPalsAPI/internal/catalog"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/store/sqlite"
	"poopyPalsAPI/internal/types/challenge"
	"poopyPalsAPI/internal/types/poop"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	t     *testing.T
	ctx   context.Context
	store *sqlite.DB
	loc   *time.Location

	mu  sync.Mutex
	now time.Time

	users         *UserService
	notifications *NotificationService
	challenges    *ChallengeService
	achievements  *AchievementService
	logs          *LogService
	stats         *StatsService
	reminders     *ReminderService
	scheduler     *NotificationScheduler

	userID uuid.UUID
}

// newTestEnv wires every service around a temp-dir SQLite store seeded with
// the default catalog. The clock starts at Wednesday 2025-03-12 10:00 UTC.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil)
}

func newTestEnvWithStore(t *testing.T, wrap func(*sqlite.DB) store.NotificationStore) *testEnv {
	t.Helper()

	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		t:     t,
		ctx:   context.Background(),
		store: db,
		loc:   time.UTC,
		now:   time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
	}

	var notifStore store.NotificationStore = db
	if wrap != nil {
		notifStore = wrap(db)
	}

	env.users = NewUserService(db)
	env.notifications = NewNotificationService(notifStore, 2)
	env.challenges = NewChallengeService(db, env.notifications, env.loc)
	env.achievements = NewAchievementService(db, env.notifications, env.loc)
	env.logs = NewLogService(db, env.challenges, env.achievements)
	env.stats = NewStatsService(db, env.loc)
	env.reminders = NewReminderService(db, env.notifications, env.loc)
	env.scheduler = NewNotificationScheduler(env.notifications, db, env.users, env.loc)

	env.notifications.SetClock(env.clock)
	env.challenges.SetClock(env.clock)
	env.achievements.SetClock(env.clock)
	env.logs.SetClock(env.clock)
	env.stats.SetClock(env.clock)
	env.reminders.SetClock(env.clock)
	env.scheduler.SetClock(env.clock)

	t.Cleanup(func() {
		env.logs.Wait()
		env.notifications.Stop()
		db.Close()
	})

	cat := catalog.Default()
	require.NoError(t, env.notifications.InitializeTemplates(env.ctx, cat.TemplateModels()))
	require.NoError(t, env.challenges.InitializeChallenges(env.ctx, cat.ChallengeModels()))
	require.NoError(t, env.achievements.InitializeAchievements(env.ctx, cat.AchievementModels()))

	env.userID = env.newUser("tester")
	return env
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) setNow(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

func (e *testEnv) newUser(externalID string) uuid.UUID {
	e.t.Helper()
	u, err := e.users.ResolveUser(e.ctx, externalID)
	require.NoError(e.t, err)
	return u.ID
}

// addLog writes a log straight to the store, skipping the post-log hooks.
func (e *testEnv) addLog(userID uuid.UUID, at time.Time, rating poop.Rating) *poop.Log {
	e.t.Helper()
	l := &poop.Log{
		ID:          uuid.New(),
		UserID:      userID,
		LoggedAt:    at,
		Duration:    5,
		Rating:      rating,
		Consistency: 4,
		CreatedAt:   at,
	}
	require.NoError(e.t, e.store.CreateLog(e.ctx, l))
	return l
}

// assign gives the user the catalog challenge with key directly.
func (e *testEnv) assign(userID uuid.UUID, key string) uuid.UUID {
	e.t.Helper()
	id := uuid.New()
	require.NoError(e.t, e.store.CreateUserChallenge(e.ctx, &challenge.UserChallenge{
		ID:          id,
		UserID:      userID,
		ChallengeID: catalog.ChallengeID(key),
		AssignedAt:  e.clock(),
	}))
	return id
}

func (e *testEnv) notificationsFor(userID uuid.UUID) []*notification.Notification {
	e.t.Helper()
	e.notifications.Dispatcher().Wait()
	list, err := e.store.ListNotifications(e.ctx, userID, 100, 0, false)
	require.NoError(e.t, err)
	return list
}

func (e *testEnv) setPrefs(userID uuid.UUID, mutate func(p *notification.Preferences)) {
	e.t.Helper()
	prefs, err := e.notifications.GetPreferences(e.ctx, userID)
	require.NoError(e.t, err)
	mutate(prefs)
	require.NoError(e.t, e.store.SavePreferences(e.ctx, prefs))
}

func templateIDs(list []*notification.Notification) []string {
	ids := make([]string, 0, len(list))
	for _, n := range list {
		ids = append(ids, n.TemplateID)
	}
	return ids
}
