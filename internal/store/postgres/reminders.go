package postgres

import (
	"context"
	"time"

	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/reminder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reminderColumns = `id, user_id, title, message, frequency, time, days_of_week,
	is_active, last_fired_at, created_at, updated_at`

func reminderDest(r *reminder.Reminder) []any {
	return []any{
		&r.ID, &r.UserID, &r.Title, &r.Message, &r.Frequency, &r.Time, &r.DaysOfWeek,
		&r.IsActive, &r.LastFiredAt, &r.CreatedAt, &r.UpdatedAt,
	}
}

func (d *DB) collectReminders(ctx context.Context, op, sql string, args ...any) ([]*reminder.Reminder, error) {
	var result []*reminder.Reminder
	err := d.query(ctx, op, sql, args,
		func() { result = []*reminder.Reminder{} },
		func(rows pgx.Rows) error {
			r := &reminder.Reminder{}
			if err := rows.Scan(reminderDest(r)...); err != nil {
				return err
			}
			result = append(result, r)
			return nil
		})
	return result, err
}

func days(r *reminder.Reminder) []int {
	if r.DaysOfWeek == nil {
		return []int{}
	}
	return r.DaysOfWeek
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

	_, err := d.exec(ctx, "insert reminder", `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.UserID, r.Title, r.Message, r.Frequency, r.Time, days(r),
		r.IsActive, r.LastFiredAt, r.CreatedAt, r.UpdatedAt)
	return err
}

func (d *DB) GetReminder(ctx context.Context, userID, id uuid.UUID) (*reminder.Reminder, error) {
	r := &reminder.Reminder{}
	err := d.queryRow(ctx, "get reminder",
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1 AND user_id = $2`,
		[]any{id, userID}, reminderDest(r)...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *DB) ListReminders(ctx context.Context, userID uuid.UUID) ([]*reminder.Reminder, error) {
	return d.collectReminders(ctx, "list reminders",
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = $1 ORDER BY time, created_at`, userID)
}

func (d *DB) ListActiveReminders(ctx context.Context) ([]*reminder.Reminder, error) {
	return d.collectReminders(ctx, "list active reminders",
		`SELECT `+reminderColumns+` FROM reminders WHERE is_active ORDER BY user_id, time`)
}

func (d *DB) UpdateReminder(ctx context.Context, r *reminder.Reminder) error {
	r.UpdatedAt = time.Now()
	tag, err := d.exec(ctx, "update reminder", `
		UPDATE reminders
		SET title = $3, message = $4, frequency = $5, time = $6, days_of_week = $7,
			is_active = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2`,
		r.ID, r.UserID, r.Title, r.Message, r.Frequency, r.Time, days(r), r.IsActive, r.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) DeleteReminder(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := d.exec(ctx, "delete reminder",
		`DELETE FROM reminders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) MarkReminderFired(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := d.exec(ctx, "mark reminder fired",
		`UPDATE reminders SET last_fired_at = $2 WHERE id = $1`, id, at)
	return err
}
