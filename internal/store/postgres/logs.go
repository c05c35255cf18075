package postgres

import (
	"context"
	"time"

	"poopyPalsAPI/internal/types/poop"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const logColumns = `id, user_id, logged_at, duration, rating, consistency, notes, created_at`

func logDest(l *poop.Log) []any {
	return []any{&l.ID, &l.UserID, &l.LoggedAt, &l.Duration, &l.Rating, &l.Consistency, &l.Notes, &l.CreatedAt}
}

func (d *DB) collectLogs(ctx context.Context, op, sql string, args ...any) ([]*poop.Log, error) {
	var logs []*poop.Log
	err := d.query(ctx, op, sql, args,
		func() { logs = []*poop.Log{} },
		func(rows pgx.Rows) error {
			l := &poop.Log{}
			if err := rows.Scan(logDest(l)...); err != nil {
				return err
			}
			logs = append(logs, l)
			return nil
		})
	return logs, err
}

func (d *DB) CreateLog(ctx context.Context, l *poop.Log) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err := d.exec(ctx, "insert log", `
		INSERT INTO poop_logs (`+logColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.UserID, l.LoggedAt, l.Duration, l.Rating, l.Consistency, l.Notes, l.CreatedAt)
	return err
}

func (d *DB) GetLog(ctx context.Context, userID, id uuid.UUID) (*poop.Log, error) {
	l := &poop.Log{}
	err := d.queryRow(ctx, "get log",
		`SELECT `+logColumns+` FROM poop_logs WHERE id = $1 AND user_id = $2`,
		[]any{id, userID}, logDest(l)...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (d *DB) ListLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*poop.Log, error) {
	return d.collectLogs(ctx, "list logs", `
		SELECT `+logColumns+` FROM poop_logs
		WHERE user_id = $1 AND logged_at >= $2 AND logged_at <= $3
		ORDER BY logged_at DESC, created_at DESC`,
		userID, from, to)
}

func (d *DB) ListRecentLogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*poop.Log, error) {
	return d.collectLogs(ctx, "list recent logs", `
		SELECT `+logColumns+` FROM poop_logs
		WHERE user_id = $1
		ORDER BY logged_at DESC, created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
}
