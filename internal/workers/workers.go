// Package workers runs the periodic background jobs.
package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"poopyPalsAPI/internal/config"
)

const jobTimeout = 5 * time.Minute

type Seeder interface {
	SeedCatalog(ctx context.Context) error
}

type Scheduler interface {
	ScheduleAll(ctx context.Context) (int, error)
}

type ReminderFirer interface {
	FireDueReminders(ctx context.Context, from, to time.Time) (int, error)
}

type DueProcessor interface {
	ProcessDueNotifications(ctx context.Context) (int, error)
}

type Runner struct {
	cfg        config.WorkerConfig
	seeder     Seeder
	scheduler  Scheduler
	reminders  ReminderFirer
	dispatcher DueProcessor
	now        func() time.Time

	wg           sync.WaitGroup
	lastReminder time.Time
}

func NewRunner(cfg config.WorkerConfig, seeder Seeder, scheduler Scheduler, reminders ReminderFirer, dispatcher DueProcessor) *Runner {
	return &Runner{
		cfg:        cfg,
		seeder:     seeder,
		scheduler:  scheduler,
		reminders:  reminders,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Start seeds the catalog after the startup delay, then runs every periodic
// job on its own ticker until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.StartupDelay):
		}
		r.Seed(ctx)

		r.lastReminder = r.now()
		r.every(ctx, r.cfg.SchedulerInterval, "scheduler", r.RunScheduler)
		r.every(ctx, r.cfg.ReminderInterval, "reminders", r.RunReminders)
		r.every(ctx, r.cfg.DispatchInterval, "dispatch", r.RunDispatch)
	}()
}

// Wait blocks until every job loop has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) every(ctx context.Context, interval time.Duration, name string, job func(context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("Started %s worker every %s", name, interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job(ctx)
			}
		}
	}()
}

func (r *Runner) Seed(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	if err := r.seeder.SeedCatalog(ctx); err != nil {
		log.Printf("Error seeding catalog: %v", err)
		return
	}
	log.Println("Catalog seeded")
}

func (r *Runner) RunScheduler(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	created, err := r.scheduler.ScheduleAll(ctx)
	if err != nil {
		log.Printf("Scheduler finished with errors: %v", err)
	}
	log.Printf("Scheduler run created %d notifications", created)
}

// RunReminders fires reminders due since the previous sweep. Only one
// reminder sweep runs at a time.
func (r *Runner) RunReminders(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	from, to := r.lastReminder, r.now()
	if from.IsZero() {
		from = to.Add(-r.cfg.ReminderInterval)
	}
	if _, err := r.reminders.FireDueReminders(ctx, from, to); err != nil {
		log.Printf("Reminder sweep finished with errors: %v", err)
	}
	r.lastReminder = to
}

func (r *Runner) RunDispatch(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	processed, err := r.dispatcher.ProcessDueNotifications(ctx)
	if err != nil {
		log.Printf("Error processing scheduled notifications: %v", err)
		return
	}
	if processed > 0 {
		log.Printf("Processed %d scheduled notifications", processed)
	}
}
