// Package server assembles the HTTP router and runs it.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"poopyPalsAPI/handlers"
	"poopyPalsAPI/internal/app"
	"poopyPalsAPI/middleware"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	rateLimitRPS   = 5
	rateLimitBurst = 30
)

// NewRouter builds the full HTTP surface. The rate limiter is returned so
// the caller can run its cleanup loop.
func NewRouter(a *app.App) (http.Handler, *middleware.RateLimiter) {
	userHandler := handlers.NewUserHandler(a.Users)
	logHandler := handlers.NewLogHandler(a.Logs)
	statsHandler := handlers.NewStatsHandler(a.Stats)
	challengeHandler := handlers.NewChallengeHandler(a.Challenges, a.Achievements)
	notificationHandler := handlers.NewNotificationHandler(a.Notifications, a.Scheduler)
	reminderHandler := handlers.NewReminderHandler(a.Reminders)

	limiter := middleware.NewRateLimiter(rateLimitRPS, rateLimitBurst)

	r := mux.NewRouter()
	r.Use(limiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(a.Config.Metrics.User, a.Config.Metrics.Password)(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := a.Store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "poopypals-api"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	if a.Config.ClerkEnabled() {
		api.Use(middleware.ClerkAuthMiddleware(a.Users))
	} else {
		api.Use(middleware.DemoUserMiddleware(a.Users, a.Config.Auth.DemoUserID))
	}

	api.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	api.HandleFunc("/user", userHandler.UpdateProfile).Methods("PUT")

	api.HandleFunc("/logs", logHandler.ListLogs).Methods("GET")
	api.HandleFunc("/logs", logHandler.CreateLog).Methods("POST")
	api.HandleFunc("/logs/{id}", logHandler.GetLog).Methods("GET")

	api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
	api.HandleFunc("/stats/calendar", statsHandler.GetCalendar).Methods("GET")
	api.HandleFunc("/stats/daily", statsHandler.GetDailyCounts).Methods("GET")

	api.HandleFunc("/challenges", challengeHandler.ListChallenges).Methods("GET")
	api.HandleFunc("/challenges/me", challengeHandler.ListUserChallenges).Methods("GET")
	api.HandleFunc("/challenges/assign", challengeHandler.AssignChallenges).Methods("POST")
	api.HandleFunc("/challenges/evaluate", challengeHandler.EvaluateChallenges).Methods("POST")
	api.HandleFunc("/achievements", challengeHandler.ListAchievements).Methods("GET")

	api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	api.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	api.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	api.HandleFunc("/notifications/preferences", notificationHandler.GetPreferences).Methods("GET")
	api.HandleFunc("/notifications/preferences", notificationHandler.UpdatePreferences).Methods("PUT")
	api.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	api.HandleFunc("/notifications/schedule", notificationHandler.Schedule).Methods("POST")
	api.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	api.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods("DELETE")

	api.HandleFunc("/reminders", reminderHandler.ListReminders).Methods("GET")
	api.HandleFunc("/reminders", reminderHandler.CreateReminder).Methods("POST")
	api.HandleFunc("/reminders/{id}", reminderHandler.UpdateReminder).Methods("PUT")
	api.HandleFunc("/reminders/{id}", reminderHandler.DeleteReminder).Methods("DELETE")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{a.Config.AllowedOrigin}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	return corsHandler(r), limiter
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, a *app.App) error {
	middleware.InitPrometheus()

	handler, limiter := NewRouter(a)
	go limiter.Cleanup(ctx, time.Minute)

	server := http.Server{
		Addr:         ":" + a.Config.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %s", a.Config.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
		return err
	}
	log.Println("Server shutdown complete")
	return nil
}
