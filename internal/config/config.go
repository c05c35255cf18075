package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	Port        string `validate:"required,numeric"`
	DatabaseURL string
	SQLiteDir   string `validate:"required_without=DatabaseURL"`
	Timezone    string `validate:"required,timezone"`
	CatalogFile string `validate:"omitempty,file"`

	Auth          AuthConfig
	Push          PushConfig
	Metrics       MetricsConfig
	Workers       WorkerConfig
	AllowedOrigin string `validate:"required"`
}

type AuthConfig struct {
	ClerkSecretKey string
	// DemoUserID is the external id used for every request when Clerk is off.
	DemoUserID string `validate:"required"`
}

type PushConfig struct {
	ServiceAccountJSON string `validate:"omitempty,base64"`
	CredentialsFile    string
}

type MetricsConfig struct {
	User     string
	Password string
}

type WorkerConfig struct {
	StartupDelay      time.Duration `validate:"gte=0"`
	SchedulerInterval time.Duration `validate:"gte=1m"`
	ReminderInterval  time.Duration `validate:"gte=10s"`
	DispatchInterval  time.Duration `validate:"gte=1s"`
	DispatchWorkers   int           `validate:"min=1,max=64"`
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	var errs []error
	duration := func(name string, fallback time.Duration) time.Duration {
		raw := get(name, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return fallback
		}
		return d
	}
	integer := func(name string, fallback int) int {
		raw := get(name, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return fallback
		}
		return n
	}

	cfg := Config{
		Port:        get("PORT", "8080"),
		DatabaseURL: get("DATABASE_URL", ""),
		SQLiteDir:   get("SQLITE_DIR", "./data"),
		Timezone:    get("TIMEZONE", "UTC"),
		CatalogFile: get("CATALOG_FILE", ""),
		Auth: AuthConfig{
			ClerkSecretKey: get("CLERK_SECRET_KEY", ""),
			DemoUserID:     get("DEMO_USER_ID", "demo-user"),
		},
		Push: PushConfig{
			ServiceAccountJSON: get("FCM_SERVICE_ACCOUNT_JSON", ""),
			CredentialsFile:    get("FCM_CREDENTIALS_FILE", ""),
		},
		Metrics: MetricsConfig{
			User:     get("METRICS_USER", ""),
			Password: get("METRICS_PASS", ""),
		},
		Workers: WorkerConfig{
			StartupDelay:      duration("STARTUP_DELAY", 5*time.Second),
			SchedulerInterval: duration("SCHEDULER_INTERVAL", time.Hour),
			ReminderInterval:  duration("REMINDER_INTERVAL", time.Minute),
			DispatchInterval:  duration("DISPATCH_INTERVAL", time.Minute),
			DispatchWorkers:   integer("DISPATCH_WORKERS", 5),
		},
		AllowedOrigin: get("ALLOWED_ORIGIN", "*"),
	}

	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c Config) ClerkEnabled() bool {
	return c.Auth.ClerkSecretKey != ""
}

func get(name, fallback string) string {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value
	}
	return fallback
}
