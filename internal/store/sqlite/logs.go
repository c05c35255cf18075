package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/poop"

	"github.com/google/uuid"
)

const logColumns = `id, user_id, logged_at, duration, rating, consistency, notes, created_at`

func scanLog(row scanner) (*poop.Log, error) {
	l := &poop.Log{}
	var loggedAt, createdAt int64
	err := row.Scan(&l.ID, &l.UserID, &loggedAt, &l.Duration, &l.Rating, &l.Consistency, &l.Notes, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	l.LoggedAt = fromMillis(loggedAt)
	l.CreatedAt = fromMillis(createdAt)
	return l, nil
}

func scanLogs(rows *sql.Rows) ([]*poop.Log, error) {
	defer rows.Close()
	logs := []*poop.Log{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (d *DB) CreateLog(ctx context.Context, l *poop.Log) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO poop_logs (`+logColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, millis(l.LoggedAt), l.Duration, l.Rating, l.Consistency, l.Notes, millis(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

func (d *DB) GetLog(ctx context.Context, userID, id uuid.UUID) (*poop.Log, error) {
	return scanLog(d.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM poop_logs WHERE id = ? AND user_id = ?`, id, userID))
}

func (d *DB) ListLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*poop.Log, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+logColumns+` FROM poop_logs
		WHERE user_id = ? AND logged_at >= ? AND logged_at <= ?
		ORDER BY logged_at DESC, rowid DESC`,
		userID, millis(from), millis(to))
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return scanLogs(rows)
}

func (d *DB) ListRecentLogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*poop.Log, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+logColumns+` FROM poop_logs
		WHERE user_id = ?
		ORDER BY logged_at DESC, rowid DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list recent logs: %w", err)
	}
	return scanLogs(rows)
}
