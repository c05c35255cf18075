// Package postgres implements store.Store on PostgreSQL through pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"poopyPalsAPI/internal/store"
)

var _ store.Store = (*DB)(nil)

const (
	maxAttempts    = 3
	baseRetryDelay = 100 * time.Millisecond
)

// SQLSTATE codes worth another attempt: serialization failure, deadlock,
// too many connections, admin shutdown and connection failures.
var transientCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"53300": true,
	"57P01": true,
	"08000": true,
	"08003": true,
	"08006": true,
}

type DB struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and applies the schema.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	d := &DB{pool: pool}
	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := d.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.withRetry(ctx, "ping", func() error {
		return d.pool.Ping(ctx)
	})
}

func (d *DB) Close() error {
	log.Println("Closing database connection pool...")
	d.pool.Close()
	return nil
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}
	return false
}

// withRetry runs fn up to maxAttempts times while it fails with a transient
// error, doubling the delay between attempts.
func (d *DB) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := baseRetryDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !isTransient(err) || attempt == maxAttempts {
			return err
		}

		log.Printf("postgres: %s failed (attempt %d/%d), retrying in %s: %v", op, attempt, maxAttempts, delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (d *DB) exec(ctx context.Context, op, sql string, args ...any) (pgconn.CommandTag, error) {
	var tag pgconn.CommandTag
	err := d.withRetry(ctx, op, func() error {
		var err error
		tag, err = d.pool.Exec(ctx, sql, args...)
		return err
	})
	if err != nil {
		return tag, fmt.Errorf("%s: %w", op, err)
	}
	return tag, nil
}

// queryRow scans a single row into dest. A missing row is store.ErrNotFound.
func (d *DB) queryRow(ctx context.Context, op, sql string, args []any, dest ...any) error {
	err := d.withRetry(ctx, op, func() error {
		return d.pool.QueryRow(ctx, sql, args...).Scan(dest...)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// query runs sql and calls each for every row. reset runs before every
// attempt so a retried query rebuilds its result from scratch.
func (d *DB) query(ctx context.Context, op, sql string, args []any, reset func(), each func(pgx.Rows) error) error {
	err := d.withRetry(ctx, op, func() error {
		reset()
		rows, err := d.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			if err := each(rows); err != nil {
				return err
			}
		}
		return rows.Err()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (d *DB) migrate(ctx context.Context) error {
	for i, m := range schema {
		if _, err := d.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		external_id TEXT NOT NULL UNIQUE,
		username    TEXT NOT NULL,
		coins       INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS poop_logs (
		id          UUID PRIMARY KEY,
		user_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		logged_at   TIMESTAMPTZ NOT NULL,
		duration    INTEGER NOT NULL CHECK (duration > 0),
		rating      TEXT NOT NULL CHECK (rating IN ('great', 'good', 'okay', 'bad')),
		consistency INTEGER NOT NULL CHECK (consistency BETWEEN 1 AND 5),
		notes       TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_poop_logs_user_time ON poop_logs(user_id, logged_at DESC)`,

	`CREATE TABLE IF NOT EXISTS challenges (
		id                  UUID PRIMARY KEY,
		key                 TEXT NOT NULL UNIQUE,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		reward              INTEGER NOT NULL DEFAULT 0,
		type                TEXT NOT NULL,
		condition_type      TEXT NOT NULL,
		condition_target    INTEGER NOT NULL,
		condition_timeframe INTEGER,
		is_active           BOOLEAN NOT NULL DEFAULT TRUE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_challenges (
		id           UUID PRIMARY KEY,
		user_id      UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		challenge_id UUID NOT NULL REFERENCES challenges(id),
		progress     INTEGER NOT NULL DEFAULT 0,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		assigned_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_challenges_user ON user_challenges(user_id, is_completed)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_challenges_active
		ON user_challenges(user_id, challenge_id) WHERE NOT is_completed`,

	`CREATE TABLE IF NOT EXISTS achievements (
		id             UUID PRIMARY KEY,
		key            TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		icon           TEXT NOT NULL DEFAULT '',
		criteria_type  TEXT NOT NULL,
		criteria_value INTEGER NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id        UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		achievement_id UUID NOT NULL REFERENCES achievements(id),
		unlocked_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
		id           UUID PRIMARY KEY,
		user_id      UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		template_id  TEXT NOT NULL DEFAULT '',
		type         TEXT NOT NULL,
		title        TEXT NOT NULL,
		message      TEXT NOT NULL,
		icon         TEXT NOT NULL DEFAULT '',
		action       TEXT NOT NULL DEFAULT '',
		data         JSONB NOT NULL DEFAULT '{}',
		is_read      BOOLEAN NOT NULL DEFAULT FALSE,
		expires_at   TIMESTAMPTZ,
		processed    BOOLEAN NOT NULL DEFAULT FALSE,
		processed_at TIMESTAMPTZ,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_due ON notifications(expires_at) WHERE NOT processed`,
	`CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id              UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		push_enabled         BOOLEAN NOT NULL DEFAULT TRUE,
		email_enabled        BOOLEAN NOT NULL DEFAULT TRUE,
		in_app_enabled       BOOLEAN NOT NULL DEFAULT TRUE,
		reminders            BOOLEAN NOT NULL DEFAULT TRUE,
		streak_alerts        BOOLEAN NOT NULL DEFAULT TRUE,
		achievements         BOOLEAN NOT NULL DEFAULT TRUE,
		tips                 BOOLEAN NOT NULL DEFAULT TRUE,
		do_not_disturb_start TEXT,
		do_not_disturb_end   TEXT,
		device_tokens        JSONB NOT NULL DEFAULT '[]',
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS reminders (
		id            UUID PRIMARY KEY,
		user_id       UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title         TEXT NOT NULL,
		message       TEXT NOT NULL DEFAULT '',
		frequency     TEXT NOT NULL CHECK (frequency IN ('daily', 'weekly', 'custom')),
		time          TEXT NOT NULL,
		days_of_week  INTEGER[] NOT NULL DEFAULT '{}',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		last_fired_at TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_active ON reminders(is_active) WHERE is_active`,
}
