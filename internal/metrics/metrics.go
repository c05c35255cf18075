// Package metrics holds the domain counters exported on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ChallengesAssigned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poopypals_challenges_assigned_total",
			Help: "Challenges assigned to users, by challenge type",
		},
		[]string{"type"},
	)
	ChallengesCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poopypals_challenges_completed_total",
			Help: "Challenge assignments completed, by condition type",
		},
		[]string{"condition"},
	)
	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poopypals_notifications_created_total",
			Help: "Notifications created, by notification type",
		},
		[]string{"type"},
	)
	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poopypals_notifications_dispatched_total",
			Help: "Notifications handed to the push provider, by outcome",
		},
		[]string{"result"},
	)
	SchedulerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poopypals_scheduler_runs_total",
			Help: "Per-user notification scheduler passes, by result",
		},
		[]string{"result"},
	)
	LogsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "poopypals_logs_recorded_total",
			Help: "Visits logged",
		},
	)
)

var registerOnce sync.Once

// Register adds the domain collectors to the default registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ChallengesAssigned,
			ChallengesCompleted,
			NotificationsCreated,
			NotificationsDispatched,
			SchedulerRuns,
			LogsRecorded,
		)
	})
}
