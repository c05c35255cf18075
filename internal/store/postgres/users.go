package postgres

import (
	"context"

	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, external_id, username, coins, created_at, updated_at`

func userDest(u *user.User) []any {
	return []any{&u.ID, &u.ExternalID, &u.Username, &u.Coins, &u.CreatedAt, &u.UpdatedAt}
}

func (d *DB) EnsureUser(ctx context.Context, externalID, username string) (*user.User, error) {
	u := &user.User{}
	err := d.queryRow(ctx, "ensure user", `
		WITH inserted AS (
			INSERT INTO users (external_id, username)
			VALUES ($1, $2)
			ON CONFLICT (external_id) DO NOTHING
			RETURNING `+userColumns+`
		)
		SELECT `+userColumns+` FROM inserted
		UNION ALL
		SELECT `+userColumns+` FROM users WHERE external_id = $1
		LIMIT 1`,
		[]any{externalID, username}, userDest(u)...)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d *DB) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u := &user.User{}
	err := d.queryRow(ctx, "get user",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, []any{id}, userDest(u)...)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d *DB) UpdateUsername(ctx context.Context, id uuid.UUID, username string) (*user.User, error) {
	u := &user.User{}
	err := d.queryRow(ctx, "update username", `
		UPDATE users SET username = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, []any{id, username}, userDest(u)...)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d *DB) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.query(ctx, "list users", `SELECT id FROM users ORDER BY created_at`, nil,
		func() { ids = nil },
		func(rows pgx.Rows) error {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
	return ids, err
}

func (d *DB) AddCoins(ctx context.Context, id uuid.UUID, amount int) error {
	tag, err := d.exec(ctx, "add coins",
		`UPDATE users SET coins = coins + $2, updated_at = NOW() WHERE id = $1`, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
