package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"

	"github.com/google/uuid"
)

const templateColumns = `id, type, title_template, message_template, icon, action`

func scanTemplate(row scanner) (*notification.Template, error) {
	t := &notification.Template{}
	if err := row.Scan(&t.ID, &t.Type, &t.TitleTemplate, &t.MessageTemplate, &t.Icon, &t.Action); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (d *DB) UpsertTemplate(ctx context.Context, t *notification.Template) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO notification_templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			type = excluded.type,
			title_template = excluded.title_template,
			message_template = excluded.message_template,
			icon = excluded.icon,
			action = excluded.action`,
		t.ID, t.Type, t.TitleTemplate, t.MessageTemplate, t.Icon, t.Action)
	if err != nil {
		return fmt.Errorf("upsert template %s: %w", t.ID, err)
	}
	return nil
}

func (d *DB) GetTemplate(ctx context.Context, id string) (*notification.Template, error) {
	return scanTemplate(d.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM notification_templates WHERE id = ?`, id))
}

func (d *DB) ListTemplatesByType(ctx context.Context, t notification.NotificationType) ([]*notification.Template, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM notification_templates WHERE type = ? ORDER BY id`, t)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []*notification.Template{}
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}

const notificationColumns = `id, user_id, template_id, type, title, message, icon, action, data,
	is_read, expires_at, processed, processed_at, created_at`

func scanNotification(row scanner) (*notification.Notification, error) {
	n := &notification.Notification{}
	var data string
	var expiresAt, processedAt sql.NullInt64
	var createdAt int64

	err := row.Scan(&n.ID, &n.UserID, &n.TemplateID, &n.Type, &n.Title, &n.Message, &n.Icon, &n.Action,
		&data, &n.IsRead, &expiresAt, &n.Processed, &processedAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if data != "" {
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("decode notification data: %w", err)
		}
	}
	n.ExpiresAt = timePtr(expiresAt)
	n.ProcessedAt = timePtr(processedAt)
	n.CreatedAt = fromMillis(createdAt)
	return n, nil
}

func scanNotifications(rows *sql.Rows) ([]*notification.Notification, error) {
	defer rows.Close()
	result := []*notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (d *DB) CreateNotification(ctx context.Context, n *notification.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	data, err := toJSON(n.Data)
	if err != nil {
		return fmt.Errorf("encode notification data: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.TemplateID, n.Type, n.Title, n.Message, n.Icon, n.Action, data,
		n.IsRead, nullMillis(n.ExpiresAt), n.Processed, nullMillis(n.ProcessedAt), millis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (d *DB) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`

	rows, err := d.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return scanNotifications(rows)
}

func (d *DB) CountNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	var count int
	if err := d.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

func (d *DB) GetLatestNotification(ctx context.Context, userID uuid.UUID, t notification.NotificationType) (*notification.Notification, error) {
	return scanNotification(d.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ? AND type = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, userID, t))
}

func (d *DB) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ? AND is_read = 0`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
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

func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := d.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := affected(res)
	return int(n), err
}

func (d *DB) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
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

func (d *DB) ListDueNotifications(ctx context.Context, before time.Time, limit int) ([]*notification.Notification, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE processed = 0 AND expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at, rowid
		LIMIT ?`, millis(before), limit)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	return scanNotifications(rows)
}

func (d *DB) MarkNotificationProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE notifications SET processed = 1, processed_at = ? WHERE id = ? AND processed = 0`,
		millis(at), id)
	if err != nil {
		return fmt.Errorf("mark notification processed: %w", err)
	}
	return nil
}

func (d *DB) GetPreferences(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	p := &notification.Preferences{}
	var dndStart, dndEnd sql.NullString
	var tokens string
	var updatedAt int64

	err := d.db.QueryRowContext(ctx, `
		SELECT user_id, push_enabled, email_enabled, in_app_enabled,
			reminders, streak_alerts, achievements, tips,
			do_not_disturb_start, do_not_disturb_end, device_tokens, updated_at
		FROM notification_preferences WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.PushEnabled, &p.EmailEnabled, &p.InAppEnabled,
		&p.Reminders, &p.StreakAlerts, &p.Achievements, &p.Tips,
		&dndStart, &dndEnd, &tokens, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	p.DoNotDisturbStart = stringPtr(dndStart)
	p.DoNotDisturbEnd = stringPtr(dndEnd)
	p.UpdatedAt = fromMillis(updatedAt)
	if err := json.Unmarshal([]byte(tokens), &p.DeviceTokens); err != nil {
		return nil, fmt.Errorf("decode device tokens: %w", err)
	}
	return p, nil
}

func (d *DB) SavePreferences(ctx context.Context, p *notification.Preferences) error {
	p.UpdatedAt = time.Now()
	if p.DeviceTokens == nil {
		p.DeviceTokens = []notification.DeviceToken{}
	}
	tokens, err := toJSON(p.DeviceTokens)
	if err != nil {
		return fmt.Errorf("encode device tokens: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (user_id, push_enabled, email_enabled, in_app_enabled,
			reminders, streak_alerts, achievements, tips,
			do_not_disturb_start, do_not_disturb_end, device_tokens, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			push_enabled = excluded.push_enabled,
			email_enabled = excluded.email_enabled,
			in_app_enabled = excluded.in_app_enabled,
			reminders = excluded.reminders,
			streak_alerts = excluded.streak_alerts,
			achievements = excluded.achievements,
			tips = excluded.tips,
			do_not_disturb_start = excluded.do_not_disturb_start,
			do_not_disturb_end = excluded.do_not_disturb_end,
			device_tokens = excluded.device_tokens,
			updated_at = excluded.updated_at`,
		p.UserID, p.PushEnabled, p.EmailEnabled, p.InAppEnabled,
		p.Reminders, p.StreakAlerts, p.Achievements, p.Tips,
		nullString(p.DoNotDisturbStart), nullString(p.DoNotDisturbEnd), tokens, millis(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
