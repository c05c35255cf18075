package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/challenge"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const challengeColumns = `c.id, c.key, c.title, c.description, c.reward, c.type,
	c.condition_type, c.condition_target, c.condition_timeframe, c.is_active, c.created_at`

func challengeDest(c *challenge.Challenge) []any {
	return []any{
		&c.ID, &c.Key, &c.Title, &c.Description, &c.Reward, &c.Type,
		&c.Condition.Type, &c.Condition.Target, &c.Condition.Timeframe, &c.IsActive, &c.CreatedAt,
	}
}

func (d *DB) UpsertChallenge(ctx context.Context, c *challenge.Challenge) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := d.exec(ctx, "upsert challenge "+c.Key, `
		INSERT INTO challenges (id, key, title, description, reward, type,
			condition_type, condition_target, condition_timeframe, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			key = EXCLUDED.key,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			reward = EXCLUDED.reward,
			type = EXCLUDED.type,
			condition_type = EXCLUDED.condition_type,
			condition_target = EXCLUDED.condition_target,
			condition_timeframe = EXCLUDED.condition_timeframe,
			is_active = EXCLUDED.is_active`,
		c.ID, c.Key, c.Title, c.Description, c.Reward, c.Type,
		c.Condition.Type, c.Condition.Target, c.Condition.Timeframe, c.IsActive, c.CreatedAt)
	return err
}

func (d *DB) ListChallenges(ctx context.Context, activeOnly bool) ([]*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges c`
	if activeOnly {
		query += ` WHERE c.is_active`
	}
	query += ` ORDER BY c.type, c.key`

	var challenges []*challenge.Challenge
	err := d.query(ctx, "list challenges", query, nil,
		func() { challenges = []*challenge.Challenge{} },
		func(rows pgx.Rows) error {
			c := &challenge.Challenge{}
			if err := rows.Scan(challengeDest(c)...); err != nil {
				return err
			}
			challenges = append(challenges, c)
			return nil
		})
	return challenges, err
}

func (d *DB) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := d.queryRow(ctx, "get challenge",
		`SELECT `+challengeColumns+` FROM challenges c WHERE c.id = $1`, []any{id}, challengeDest(c)...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (d *DB) ListUserChallenges(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*challenge.UserChallengeWithChallenge, error) {
	query := `
		SELECT uc.id, uc.user_id, uc.challenge_id, uc.progress, uc.is_completed,
			uc.assigned_at, uc.completed_at, ` + challengeColumns + `
		FROM user_challenges uc
		JOIN challenges c ON c.id = uc.challenge_id
		WHERE uc.user_id = $1`
	if activeOnly {
		query += ` AND NOT uc.is_completed`
	}
	query += ` ORDER BY uc.assigned_at, uc.id`

	var result []*challenge.UserChallengeWithChallenge
	err := d.query(ctx, "list user challenges", query, []any{userID},
		func() { result = []*challenge.UserChallengeWithChallenge{} },
		func(rows pgx.Rows) error {
			uc := &challenge.UserChallengeWithChallenge{}
			dest := []any{
				&uc.ID, &uc.UserID, &uc.ChallengeID, &uc.Progress, &uc.IsCompleted,
				&uc.AssignedAt, &uc.CompletedAt,
			}
			if err := rows.Scan(append(dest, challengeDest(&uc.Challenge)...)...); err != nil {
				return err
			}
			result = append(result, uc)
			return nil
		})
	return result, err
}

func (d *DB) CreateUserChallenge(ctx context.Context, uc *challenge.UserChallenge) error {
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	_, err := d.exec(ctx, "insert user challenge", `
		INSERT INTO user_challenges (id, user_id, challenge_id, progress, is_completed, assigned_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uc.ID, uc.UserID, uc.ChallengeID, uc.Progress, uc.IsCompleted, uc.AssignedAt, uc.CompletedAt)
	return err
}

// AssignUserChallenge locks the user row first, so concurrent assignment
// passes for one user run one after another and each sees the rows the
// previous one committed.
func (d *DB) AssignUserChallenge(ctx context.Context, uc *challenge.UserChallenge, t challenge.ChallengeType, maxActive int) (bool, error) {
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}

	var inserted bool
	err := d.withRetry(ctx, "assign user challenge", func() error {
		inserted = false
		tx, err := d.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, uc.UserID).Scan(&locked); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO user_challenges (id, user_id, challenge_id, progress, is_completed, assigned_at)
			SELECT $1::uuid, $2::uuid, $3::uuid, 0, FALSE, $4::timestamptz
			WHERE (
				SELECT COUNT(*) FROM user_challenges uc
				JOIN challenges c ON c.id = uc.challenge_id
				WHERE uc.user_id = $2 AND NOT uc.is_completed AND c.type = $5
			) < $6
			AND NOT EXISTS (
				SELECT 1 FROM user_challenges
				WHERE user_id = $2 AND challenge_id = $3 AND NOT is_completed
			)`,
			uc.ID, uc.UserID, uc.ChallengeID, uc.AssignedAt, string(t), maxActive)
		if err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		inserted = tag.RowsAffected() == 1
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return false, store.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("assign user challenge: %w", err)
	}
	return inserted, nil
}

func (d *DB) SaveUserChallengeProgress(ctx context.Context, id uuid.UUID, expected, progress int, completedAt *time.Time) (bool, error) {
	tag, err := d.exec(ctx, "save challenge progress", `
		UPDATE user_challenges
		SET progress = $3, is_completed = $4, completed_at = $5
		WHERE id = $1 AND progress = $2 AND NOT is_completed`,
		id, expected, progress, completedAt != nil, completedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (d *DB) CountCompletedChallenges(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := d.queryRow(ctx, "count completed challenges",
		`SELECT COUNT(*) FROM user_challenges WHERE user_id = $1 AND is_completed`,
		[]any{userID}, &count)
	return count, err
}
