package postgres

import (
	"context"
	"time"

	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const templateColumns = `id, type, title_template, message_template, icon, action`

func templateDest(t *notification.Template) []any {
	return []any{&t.ID, &t.Type, &t.TitleTemplate, &t.MessageTemplate, &t.Icon, &t.Action}
}

func (d *DB) UpsertTemplate(ctx context.Context, t *notification.Template) error {
	_, err := d.exec(ctx, "upsert template "+t.ID, `
		INSERT INTO notification_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			title_template = EXCLUDED.title_template,
			message_template = EXCLUDED.message_template,
			icon = EXCLUDED.icon,
			action = EXCLUDED.action`,
		t.ID, t.Type, t.TitleTemplate, t.MessageTemplate, t.Icon, t.Action)
	return err
}

func (d *DB) GetTemplate(ctx context.Context, id string) (*notification.Template, error) {
	t := &notification.Template{}
	err := d.queryRow(ctx, "get template",
		`SELECT `+templateColumns+` FROM notification_templates WHERE id = $1`, []any{id}, templateDest(t)...)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (d *DB) ListTemplatesByType(ctx context.Context, t notification.NotificationType) ([]*notification.Template, error) {
	var templates []*notification.Template
	err := d.query(ctx, "list templates",
		`SELECT `+templateColumns+` FROM notification_templates WHERE type = $1 ORDER BY id`,
		[]any{t},
		func() { templates = []*notification.Template{} },
		func(rows pgx.Rows) error {
			tmpl := &notification.Template{}
			if err := rows.Scan(templateDest(tmpl)...); err != nil {
				return err
			}
			templates = append(templates, tmpl)
			return nil
		})
	return templates, err
}

const notificationColumns = `id, user_id, template_id, type, title, message, icon, action, data,
	is_read, expires_at, processed, processed_at, created_at`

func notificationDest(n *notification.Notification) []any {
	return []any{
		&n.ID, &n.UserID, &n.TemplateID, &n.Type, &n.Title, &n.Message, &n.Icon, &n.Action, &n.Data,
		&n.IsRead, &n.ExpiresAt, &n.Processed, &n.ProcessedAt, &n.CreatedAt,
	}
}

func (d *DB) collectNotifications(ctx context.Context, op, sql string, args ...any) ([]*notification.Notification, error) {
	var result []*notification.Notification
	err := d.query(ctx, op, sql, args,
		func() { result = []*notification.Notification{} },
		func(rows pgx.Rows) error {
			n := &notification.Notification{}
			if err := rows.Scan(notificationDest(n)...); err != nil {
				return err
			}
			result = append(result, n)
			return nil
		})
	return result, err
}

func (d *DB) CreateNotification(ctx context.Context, n *notification.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	data := n.Data
	if data == nil {
		data = map[string]any{}
	}
	_, err := d.exec(ctx, "insert notification", `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		n.ID, n.UserID, n.TemplateID, n.Type, n.Title, n.Message, n.Icon, n.Action, data,
		n.IsRead, n.ExpiresAt, n.Processed, n.ProcessedAt, n.CreatedAt)
	return err
}

func (d *DB) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	return d.collectNotifications(ctx, "list notifications", query, userID, limit, offset)
}

func (d *DB) CountNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	var count int
	err := d.queryRow(ctx, "count notifications", query, []any{userID}, &count)
	return count, err
}

func (d *DB) GetLatestNotification(ctx context.Context, userID uuid.UUID, t notification.NotificationType) (*notification.Notification, error) {
	n := &notification.Notification{}
	err := d.queryRow(ctx, "latest notification", `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND type = $2
		ORDER BY created_at DESC
		LIMIT 1`, []any{userID, t}, notificationDest(n)...)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (d *DB) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := d.exec(ctx, "mark notification read",
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 AND NOT is_read`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := d.exec(ctx, "mark all notifications read",
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (d *DB) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := d.exec(ctx, "delete notification",
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) ListDueNotifications(ctx context.Context, before time.Time, limit int) ([]*notification.Notification, error) {
	return d.collectNotifications(ctx, "list due notifications", `
		SELECT `+notificationColumns+` FROM notifications
		WHERE NOT processed AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`, before, limit)
}

func (d *DB) MarkNotificationProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := d.exec(ctx, "mark notification processed",
		`UPDATE notifications SET processed = TRUE, processed_at = $2 WHERE id = $1 AND NOT processed`, id, at)
	return err
}

const preferenceColumns = `user_id, push_enabled, email_enabled, in_app_enabled,
	reminders, streak_alerts, achievements, tips,
	do_not_disturb_start, do_not_disturb_end, device_tokens, updated_at`

func (d *DB) GetPreferences(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	p := &notification.Preferences{}
	err := d.queryRow(ctx, "get preferences",
		`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = $1`,
		[]any{userID},
		&p.UserID, &p.PushEnabled, &p.EmailEnabled, &p.InAppEnabled,
		&p.Reminders, &p.StreakAlerts, &p.Achievements, &p.Tips,
		&p.DoNotDisturbStart, &p.DoNotDisturbEnd, &p.DeviceTokens, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *DB) SavePreferences(ctx context.Context, p *notification.Preferences) error {
	p.UpdatedAt = time.Now()
	if p.DeviceTokens == nil {
		p.DeviceTokens = []notification.DeviceToken{}
	}
	orNil := func(s *string) *string {
		if s == nil || *s == "" {
			return nil
		}
		return s
	}

	_, err := d.exec(ctx, "save preferences", `
		INSERT INTO notification_preferences (`+preferenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			push_enabled = EXCLUDED.push_enabled,
			email_enabled = EXCLUDED.email_enabled,
			in_app_enabled = EXCLUDED.in_app_enabled,
			reminders = EXCLUDED.reminders,
			streak_alerts = EXCLUDED.streak_alerts,
			achievements = EXCLUDED.achievements,
			tips = EXCLUDED.tips,
			do_not_disturb_start = EXCLUDED.do_not_disturb_start,
			do_not_disturb_end = EXCLUDED.do_not_disturb_end,
			device_tokens = EXCLUDED.device_tokens,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.PushEnabled, p.EmailEnabled, p.InAppEnabled,
		p.Reminders, p.StreakAlerts, p.Achievements, p.Tips,
		orNil(p.DoNotDisturbStart), orNil(p.DoNotDisturbEnd), p.DeviceTokens, p.UpdatedAt)
	return err
}
