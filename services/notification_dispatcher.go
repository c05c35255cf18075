package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"poopyPalsAPI/internal/metrics"
	"poopyPalsAPI/internal/notification"
)

const dueBatchSize = 100

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationDispatcher delivers notifications through the push provider
// on a small worker pool, and sweeps scheduled notifications once due.
type NotificationDispatcher struct {
	service *NotificationService

	mu           sync.RWMutex
	pushProvider PushNotificationProvider

	stateMu sync.RWMutex
	stopped bool

	workers  int
	jobQueue chan *DispatchJob
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	pending  sync.WaitGroup
}

type DispatchJob struct {
	Notification *notification.Notification
	Preferences  *notification.Preferences
}

func NewNotificationDispatcher(service *NotificationService, workers int) *NotificationDispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &NotificationDispatcher{
		service:  service,
		workers:  workers,
		jobQueue: make(chan *DispatchJob, 100),
		stopChan: make(chan struct{}),
	}
	d.startWorkers()
	return d
}

func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushProvider = provider
}

func (d *NotificationDispatcher) provider() PushNotificationProvider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pushProvider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			for {
				select {
				case job := <-d.jobQueue:
					d.processJob(job)
				default:
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	defer d.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d.deliver(ctx, job.Notification, job.Preferences)
	if err := d.service.store.MarkNotificationProcessed(ctx, job.Notification.ID, d.service.now()); err != nil {
		log.Printf("Failed to mark notification %s as processed: %v", job.Notification.ID, err)
	}
}

// deliver pushes when the user allows it and a provider is set, otherwise
// the notification is only logged.
func (d *NotificationDispatcher) deliver(ctx context.Context, notif *notification.Notification, prefs *notification.Preferences) {
	provider := d.provider()
	if !prefs.PushEnabled || len(prefs.DeviceTokens) == 0 || provider == nil {
		log.Printf("Notification %s for user %s: %q (push enabled=%v, tokens=%d, provider=%v)",
			notif.ID, notif.UserID, notif.Title, prefs.PushEnabled, len(prefs.DeviceTokens), provider != nil)
		metrics.NotificationsDispatched.WithLabelValues("logged").Inc()
		return
	}

	if err := provider.SendPush(ctx, prefs.DeviceTokens, notif.Title, notif.Message, notif.Data); err != nil {
		log.Printf("Push failed for user %s: %v", notif.UserID, err)
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		return
	}
	metrics.NotificationsDispatched.WithLabelValues("sent").Inc()
}

// DispatchNotification queues an immediate notification for delivery.
func (d *NotificationDispatcher) DispatchNotification(ctx context.Context, notif *notification.Notification, prefs *notification.Preferences) {
	job := &DispatchJob{
		Notification: notif,
		Preferences:  prefs,
	}

	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	if d.stopped {
		log.Printf("Dispatcher stopped, notification %s not queued", notif.ID)
		return
	}

	d.pending.Add(1)
	select {
	case d.jobQueue <- job:
	case <-ctx.Done():
		d.pending.Done()
		log.Printf("Failed to queue notification %s: %v", notif.ID, ctx.Err())
	case <-time.After(5 * time.Second):
		d.pending.Done()
		log.Printf("Failed to queue notification %s: queue full", notif.ID)
	}
}

// ProcessDueNotifications delivers every scheduled notification whose time
// has come and marks it processed. It returns how many were processed.
func (d *NotificationDispatcher) ProcessDueNotifications(ctx context.Context) (int, error) {
	now := d.service.now()
	due, err := d.service.store.ListDueNotifications(ctx, now, dueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch scheduled notifications: %w", err)
	}

	count := 0
	for _, notif := range due {
		prefs, err := d.service.GetPreferences(ctx, notif.UserID)
		if err != nil {
			log.Printf("Failed to get preferences for user %s: %v", notif.UserID, err)
			continue
		}

		d.deliver(ctx, notif, prefs)
		if err := d.service.store.MarkNotificationProcessed(ctx, notif.ID, now); err != nil {
			log.Printf("Failed to mark notification %s as processed: %v", notif.ID, err)
			continue
		}
		count++
	}

	if count > 0 {
		log.Printf("Processed %d scheduled notifications", count)
	}
	return count, nil
}

// Wait blocks until every queued notification has been handled.
func (d *NotificationDispatcher) Wait() {
	d.pending.Wait()
}

// Stop drains the queue and stops the workers.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		log.Println("Stopping notification dispatcher...")
		d.stateMu.Lock()
		d.stopped = true
		d.stateMu.Unlock()
		close(d.stopChan)
		d.wg.Wait()
		log.Println("Notification dispatcher stopped")
	})
}

// LogPushProvider writes pushes to the log. It stands in for FCM when no
// credentials are configured.
type LogPushProvider struct{}

func (LogPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	log.Printf("PUSH: sending to %d devices: %s - %s", len(tokens), title, body)
	return nil
}
