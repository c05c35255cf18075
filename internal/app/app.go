// Package app builds the store and services from config.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"poopyPalsAPI/internal/catalog"
	"poopyPalsAPI/internal/config"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/store/postgres"
	"poopyPalsAPI/internal/store/sqlite"
	"poopyPalsAPI/services"

	clerk "github.com/clerk/clerk-sdk-go/v2"
)

type App struct {
	Config   config.Config
	Store    store.Store
	Catalog  *catalog.Catalog
	Location *time.Location

	Users         *services.UserService
	Notifications *services.NotificationService
	Scheduler     *services.NotificationScheduler
	Challenges    *services.ChallengeService
	Achievements  *services.AchievementService
	Logs          *services.LogService
	Stats         *services.StatsService
	Reminders     *services.ReminderService
}

// New opens the configured store and wires every service. Postgres is used
// when DATABASE_URL is set, SQLite otherwise.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		st, err = postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Println("Connected to PostgreSQL")
	} else {
		st, err = sqlite.Open(cfg.SQLiteDir)
		if err != nil {
			return nil, err
		}
		log.Printf("Using SQLite store in %s", cfg.SQLiteDir)
	}

	if cfg.ClerkEnabled() {
		clerk.SetKey(cfg.Auth.ClerkSecretKey)
		log.Println("Clerk initialized successfully")
	}

	a := Build(cfg, st, cat, loc)
	a.setupPush(ctx)
	return a, nil
}

// Build wires services around an already opened store.
func Build(cfg config.Config, st store.Store, cat *catalog.Catalog, loc *time.Location) *App {
	if loc == nil {
		loc = time.UTC
	}
	workers := cfg.Workers.DispatchWorkers
	if workers < 1 {
		workers = 1
	}

	notifications := services.NewNotificationService(st, workers)
	challenges := services.NewChallengeService(st, notifications, loc)
	achievements := services.NewAchievementService(st, notifications, loc)

	return &App{
		Config:        cfg,
		Store:         st,
		Catalog:       cat,
		Location:      loc,
		Users:         services.NewUserService(st),
		Notifications: notifications,
		Scheduler:     services.NewNotificationScheduler(notifications, st, st, loc),
		Challenges:    challenges,
		Achievements:  achievements,
		Logs:          services.NewLogService(st, challenges, achievements),
		Stats:         services.NewStatsService(st, loc),
		Reminders:     services.NewReminderService(st, notifications, loc),
	}
}

func (a *App) setupPush(ctx context.Context) {
	push := a.Config.Push
	if push.ServiceAccountJSON == "" && push.CredentialsFile == "" {
		log.Println("No FCM credentials configured, push notifications will be logged")
		return
	}

	fcm, err := notification.NewFCMService(ctx, push.ServiceAccountJSON, push.CredentialsFile)
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
		return
	}
	a.Notifications.SetPushProvider(fcm)
	log.Println("FCM Push Provider initialized successfully")
}

// SeedCatalog upserts challenges, templates and achievements.
func (a *App) SeedCatalog(ctx context.Context) error {
	if err := a.Notifications.InitializeTemplates(ctx, a.Catalog.TemplateModels()); err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}
	if err := a.Challenges.InitializeChallenges(ctx, a.Catalog.ChallengeModels()); err != nil {
		return fmt.Errorf("seed challenges: %w", err)
	}
	if err := a.Achievements.InitializeAchievements(ctx, a.Catalog.AchievementModels()); err != nil {
		return fmt.Errorf("seed achievements: %w", err)
	}
	return nil
}

// Close waits for background work, stops the dispatcher and closes the store.
func (a *App) Close() error {
	a.Logs.Wait()
	a.Notifications.Stop()
	return a.Store.Close()
}
