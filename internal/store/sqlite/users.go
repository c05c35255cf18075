package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/user"

	"github.com/google/uuid"
)

const userColumns = `id, external_id, username, coins, created_at, updated_at`

func scanUser(row scanner) (*user.User, error) {
	u := &user.User{}
	var createdAt, updatedAt int64
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Username, &u.Coins, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (d *DB) EnsureUser(ctx context.Context, externalID, username string) (*user.User, error) {
	now := millis(time.Now())
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, external_id, username, coins, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT (external_id) DO NOTHING`,
		uuid.New(), externalID, username, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	u, err := scanUser(d.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID))
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", externalID, err)
	}
	return u, nil
}

func (d *DB) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return scanUser(d.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (d *DB) UpdateUsername(ctx context.Context, id uuid.UUID, username string) (*user.User, error) {
	res, err := d.db.ExecContext(ctx,
		`UPDATE users SET username = ?, updated_at = ? WHERE id = ?`,
		username, millis(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update username: %w", err)
	}
	if n, err := affected(res); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, store.ErrNotFound
	}
	return d.GetUser(ctx, id)
}

func (d *DB) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *DB) AddCoins(ctx context.Context, id uuid.UUID, amount int) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE users SET coins = coins + ?, updated_at = ? WHERE id = ?`,
		amount, millis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("add coins: %w", err)
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
