// Package sqlite implements store.Store on an embedded SQLite database.
// It backs local development and the test suites.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"poopyPalsAPI/internal/store"
)

var _ store.Store = (*DB)(nil)

// DB wraps a single SQLite connection in WAL mode.
type DB struct {
	db *sql.DB
}

// Open creates or opens dir/poopypals.db and applies migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "poopypals.db")
	dsn := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id          TEXT PRIMARY KEY,
			external_id TEXT NOT NULL UNIQUE,
			username    TEXT NOT NULL,
			coins       INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS poop_logs (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			logged_at   INTEGER NOT NULL,
			duration    INTEGER NOT NULL,
			rating      TEXT NOT NULL,
			consistency INTEGER NOT NULL,
			notes       TEXT NOT NULL DEFAULT '',
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_poop_logs_user_time ON poop_logs(user_id, logged_at)`,

		`CREATE TABLE IF NOT EXISTS challenges (
			id                  TEXT PRIMARY KEY,
			key                 TEXT NOT NULL UNIQUE,
			title               TEXT NOT NULL,
			description         TEXT NOT NULL DEFAULT '',
			reward              INTEGER NOT NULL DEFAULT 0,
			type                TEXT NOT NULL,
			condition_type      TEXT NOT NULL,
			condition_target    INTEGER NOT NULL,
			condition_timeframe INTEGER,
			is_active           BOOLEAN NOT NULL DEFAULT 1,
			created_at          INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_challenges (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			challenge_id TEXT NOT NULL REFERENCES challenges(id),
			progress     INTEGER NOT NULL DEFAULT 0,
			is_completed BOOLEAN NOT NULL DEFAULT 0,
			assigned_at  INTEGER NOT NULL,
			completed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_challenges_user ON user_challenges(user_id, is_completed)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_challenges_active
			ON user_challenges(user_id, challenge_id) WHERE is_completed = 0`,

		`CREATE TABLE IF NOT EXISTS achievements (
			id             TEXT PRIMARY KEY,
			key            TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			icon           TEXT NOT NULL DEFAULT '',
			criteria_type  TEXT NOT NULL,
			criteria_value INTEGER NOT NULL,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_achievements (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			achievement_id TEXT NOT NULL REFERENCES achievements(id),
			unlocked_at    INTEGER NOT NULL,
			UNIQUE (user_id, achievement_id)
		)`,

		`CREATE TABLE IF NOT EXISTS notification_templates (
			id               TEXT PRIMARY KEY,
			type             TEXT NOT NULL,
			title_template   TEXT NOT NULL,
			message_template TEXT NOT NULL,
			icon             TEXT NOT NULL DEFAULT '',
			action           TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			template_id  TEXT NOT NULL DEFAULT '',
			type         TEXT NOT NULL,
			title        TEXT NOT NULL,
			message      TEXT NOT NULL,
			icon         TEXT NOT NULL DEFAULT '',
			action       TEXT NOT NULL DEFAULT '',
			data         TEXT NOT NULL DEFAULT '{}',
			is_read      BOOLEAN NOT NULL DEFAULT 0,
			expires_at   INTEGER,
			processed    BOOLEAN NOT NULL DEFAULT 0,
			processed_at INTEGER,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_due ON notifications(processed, expires_at)`,
		`CREATE TABLE IF NOT EXISTS notification_preferences (
			user_id              TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			push_enabled         BOOLEAN NOT NULL DEFAULT 1,
			email_enabled        BOOLEAN NOT NULL DEFAULT 1,
			in_app_enabled       BOOLEAN NOT NULL DEFAULT 1,
			reminders            BOOLEAN NOT NULL DEFAULT 1,
			streak_alerts        BOOLEAN NOT NULL DEFAULT 1,
			achievements         BOOLEAN NOT NULL DEFAULT 1,
			tips                 BOOLEAN NOT NULL DEFAULT 1,
			do_not_disturb_start TEXT,
			do_not_disturb_end   TEXT,
			device_tokens        TEXT NOT NULL DEFAULT '[]',
			updated_at           INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS reminders (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title         TEXT NOT NULL,
			message       TEXT NOT NULL DEFAULT '',
			frequency     TEXT NOT NULL,
			time          TEXT NOT NULL,
			days_of_week  TEXT NOT NULL DEFAULT '[]',
			is_active     BOOLEAN NOT NULL DEFAULT 1,
			last_fired_at INTEGER,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_active ON reminders(is_active)`,
	}

	for i, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// Times are stored as unix milliseconds.
func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
