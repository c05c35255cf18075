package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"poopyPalsAPI/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type window struct{ from, to time.Time }

type fakeJobs struct {
	mu        sync.Mutex
	seeded    int
	scheduled int
	windows   []window
	processed int
	err       error
}

func (f *fakeJobs) SeedCatalog(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeded++
	return f.err
}

func (f *fakeJobs) ScheduleAll(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled++
	return 2, f.err
}

func (f *fakeJobs) FireDueReminders(_ context.Context, from, to time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, window{from, to})
	return 0, f.err
}

func (f *fakeJobs) ProcessDueNotifications(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed++
	return 1, f.err
}

func (f *fakeJobs) counts() (int, int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seeded, f.scheduled, len(f.windows), f.processed
}

func newTestRunner(jobs *fakeJobs, cfg config.WorkerConfig) *Runner {
	return NewRunner(cfg, jobs, jobs, jobs, jobs)
}

func TestRunRemindersAdvancesWindow(t *testing.T) {
	jobs := &fakeJobs{}
	r := newTestRunner(jobs, config.WorkerConfig{ReminderInterval: time.Minute})

	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.RunReminders(context.Background())
	now = now.Add(90 * time.Second)
	r.RunReminders(context.Background())

	require.Len(t, jobs.windows, 2)
	assert.Equal(t, now.Add(-150*time.Second), jobs.windows[0].from, "first sweep looks back one interval")
	assert.Equal(t, jobs.windows[0].to, jobs.windows[1].from, "sweeps are contiguous")
	assert.Equal(t, now, jobs.windows[1].to)
}

func TestRunRemindersAdvancesOnError(t *testing.T) {
	jobs := &fakeJobs{err: errors.New("partial")}
	r := newTestRunner(jobs, config.WorkerConfig{ReminderInterval: time.Minute})

	r.RunReminders(context.Background())
	r.RunReminders(context.Background())
	require.Len(t, jobs.windows, 2)
	assert.Equal(t, jobs.windows[0].to, jobs.windows[1].from)
}

func TestJobsTolerateErrors(t *testing.T) {
	jobs := &fakeJobs{err: errors.New("boom")}
	r := newTestRunner(jobs, config.WorkerConfig{})

	r.Seed(context.Background())
	r.RunScheduler(context.Background())
	r.RunDispatch(context.Background())

	seeded, scheduled, _, processed := jobs.counts()
	assert.Equal(t, 1, seeded)
	assert.Equal(t, 1, scheduled)
	assert.Equal(t, 1, processed)
}

func TestStartRunsLoopsUntilCancelled(t *testing.T) {
	jobs := &fakeJobs{}
	r := newTestRunner(jobs, config.WorkerConfig{
		StartupDelay:      time.Millisecond,
		SchedulerInterval: 5 * time.Millisecond,
		ReminderInterval:  5 * time.Millisecond,
		DispatchInterval:  5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	assert.Eventually(t, func() bool {
		seeded, scheduled, swept, processed := jobs.counts()
		return seeded == 1 && scheduled > 0 && swept > 0 && processed > 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	r.Wait()
}

func TestStartStopsDuringDelay(t *testing.T) {
	jobs := &fakeJobs{}
	r := newTestRunner(jobs, config.WorkerConfig{StartupDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()
	r.Wait()

	seeded, _, _, _ := jobs.counts()
	assert.Zero(t, seeded)
}
