package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/reminder"

	"github.com/google/uuid"
)

const reminderColumns = `id, user_id, title, message, frequency, time, days_of_week,
	is_active, last_fired_at, created_at, updated_at`

func scanReminder(row scanner) (*reminder.Reminder, error) {
	r := &reminder.Reminder{}
	var days string
	var lastFired sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Message, &r.Frequency, &r.Time, &days,
		&r.IsActive, &lastFired, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(days), &r.DaysOfWeek); err != nil {
		return nil, fmt.Errorf("decode days of week: %w", err)
	}
	r.LastFiredAt = timePtr(lastFired)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return r, nil
}

func scanReminders(rows *sql.Rows) ([]*reminder.Reminder, error) {
	defer rows.Close()
	result := []*reminder.Reminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func encodeDays(days []int) (string, error) {
	if days == nil {
		days = []int{}
	}
	return toJSON(days)
}

func (d *DB) CreateReminder(ctx context.Context, r *reminder.Reminder) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	days, err := encodeDays(r.DaysOfWeek)
	if err != nil {
		return fmt.Errorf("encode days of week: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Title, r.Message, r.Frequency, r.Time, days,
		r.IsActive, nullMillis(r.LastFiredAt), millis(r.CreatedAt), millis(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (d *DB) GetReminder(ctx context.Context, userID, id uuid.UUID) (*reminder.Reminder, error) {
	return scanReminder(d.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = ? AND user_id = ?`, id, userID))
}

func (d *DB) ListReminders(ctx context.Context, userID uuid.UUID) ([]*reminder.Reminder, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = ? ORDER BY time, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return scanReminders(rows)
}

func (d *DB) ListActiveReminders(ctx context.Context) ([]*reminder.Reminder, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE is_active = 1 ORDER BY user_id, time`)
	if err != nil {
		return nil, fmt.Errorf("list active reminders: %w", err)
	}
	return scanReminders(rows)
}

func (d *DB) UpdateReminder(ctx context.Context, r *reminder.Reminder) error {
	r.UpdatedAt = time.Now()
	days, err := encodeDays(r.DaysOfWeek)
	if err != nil {
		return fmt.Errorf("encode days of week: %w", err)
	}

	res, err := d.db.ExecContext(ctx, `
		UPDATE reminders
		SET title = ?, message = ?, frequency = ?, time = ?, days_of_week = ?,
			is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		r.Title, r.Message, r.Frequency, r.Time, days, r.IsActive, millis(r.UpdatedAt),
		r.ID, r.UserID,
	)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) DeleteReminder(ctx context.Context, userID, id uuid.UUID) error {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) MarkReminderFired(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE reminders SET last_fired_at = ? WHERE id = ?`, millis(at), id)
	if err != nil {
		return fmt.Errorf("mark reminder fired: %w", err)
	}
	return nil
}
