package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/challenge"

	"github.com/google/uuid"
)

const challengeColumns = `c.id, c.key, c.title, c.description, c.reward, c.type,
	c.condition_type, c.condition_target, c.condition_timeframe, c.is_active, c.created_at`

const userChallengeColumns = `uc.id, uc.user_id, uc.challenge_id, uc.progress, uc.is_completed,
	uc.assigned_at, uc.completed_at`

func challengeDest(c *challenge.Challenge, timeframe *sql.NullInt64, createdAt *int64) []any {
	return []any{
		&c.ID, &c.Key, &c.Title, &c.Description, &c.Reward, &c.Type,
		&c.Condition.Type, &c.Condition.Target, timeframe, &c.IsActive, createdAt,
	}
}

func fillChallenge(c *challenge.Challenge, timeframe sql.NullInt64, createdAt int64) {
	if timeframe.Valid {
		days := int(timeframe.Int64)
		c.Condition.Timeframe = &days
	}
	c.CreatedAt = fromMillis(createdAt)
}

func scanChallenge(row scanner) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	var timeframe sql.NullInt64
	var createdAt int64
	if err := row.Scan(challengeDest(c, &timeframe, &createdAt)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	fillChallenge(c, timeframe, createdAt)
	return c, nil
}

func (d *DB) UpsertChallenge(ctx context.Context, c *challenge.Challenge) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	var timeframe sql.NullInt64
	if c.Condition.Timeframe != nil {
		timeframe = sql.NullInt64{Int64: int64(*c.Condition.Timeframe), Valid: true}
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO challenges (id, key, title, description, reward, type,
			condition_type, condition_target, condition_timeframe, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			key = excluded.key,
			title = excluded.title,
			description = excluded.description,
			reward = excluded.reward,
			type = excluded.type,
			condition_type = excluded.condition_type,
			condition_target = excluded.condition_target,
			condition_timeframe = excluded.condition_timeframe,
			is_active = excluded.is_active`,
		c.ID, c.Key, c.Title, c.Description, c.Reward, c.Type,
		c.Condition.Type, c.Condition.Target, timeframe, c.IsActive, millis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert challenge %s: %w", c.Key, err)
	}
	return nil
}

func (d *DB) ListChallenges(ctx context.Context, activeOnly bool) ([]*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges c`
	if activeOnly {
		query += ` WHERE c.is_active = 1`
	}
	query += ` ORDER BY c.type, c.key`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*challenge.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (d *DB) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	return scanChallenge(d.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges c WHERE c.id = ?`, id))
}

func (d *DB) ListUserChallenges(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*challenge.UserChallengeWithChallenge, error) {
	query := `SELECT ` + userChallengeColumns + `, ` + challengeColumns + `
		FROM user_challenges uc
		JOIN challenges c ON c.id = uc.challenge_id
		WHERE uc.user_id = ?`
	if activeOnly {
		query += ` AND uc.is_completed = 0`
	}
	query += ` ORDER BY uc.assigned_at, uc.rowid`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user challenges: %w", err)
	}
	defer rows.Close()

	result := []*challenge.UserChallengeWithChallenge{}
	for rows.Next() {
		uc := &challenge.UserChallengeWithChallenge{}
		var assignedAt int64
		var completedAt sql.NullInt64
		var timeframe sql.NullInt64
		var createdAt int64

		dest := []any{
			&uc.ID, &uc.UserID, &uc.ChallengeID, &uc.Progress, &uc.IsCompleted,
			&assignedAt, &completedAt,
		}
		dest = append(dest, challengeDest(&uc.Challenge, &timeframe, &createdAt)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan user challenge: %w", err)
		}

		uc.AssignedAt = fromMillis(assignedAt)
		uc.CompletedAt = timePtr(completedAt)
		fillChallenge(&uc.Challenge, timeframe, createdAt)
		result = append(result, uc)
	}
	return result, rows.Err()
}

func (d *DB) CreateUserChallenge(ctx context.Context, uc *challenge.UserChallenge) error {
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO user_challenges (id, user_id, challenge_id, progress, is_completed, assigned_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uc.ID, uc.UserID, uc.ChallengeID, uc.Progress, uc.IsCompleted,
		millis(uc.AssignedAt), nullMillis(uc.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user challenge: %w", err)
	}
	return nil
}

// AssignUserChallenge relies on the single connection: the conditional
// insert is one statement, so no other writer runs between check and insert.
func (d *DB) AssignUserChallenge(ctx context.Context, uc *challenge.UserChallenge, t challenge.ChallengeType, maxActive int) (bool, error) {
	if uc.ID == uuid.Nil {
		uc.ID = uuid.New()
	}
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO user_challenges (id, user_id, challenge_id, progress, is_completed, assigned_at)
		SELECT ?, ?, ?, 0, 0, ?
		WHERE (
			SELECT COUNT(*) FROM user_challenges uc
			JOIN challenges c ON c.id = uc.challenge_id
			WHERE uc.user_id = ? AND uc.is_completed = 0 AND c.type = ?
		) < ?
		AND NOT EXISTS (
			SELECT 1 FROM user_challenges
			WHERE user_id = ? AND challenge_id = ? AND is_completed = 0
		)`,
		uc.ID, uc.UserID, uc.ChallengeID, millis(uc.AssignedAt),
		uc.UserID, string(t), maxActive,
		uc.UserID, uc.ChallengeID,
	)
	if err != nil {
		return false, fmt.Errorf("assign user challenge: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (d *DB) SaveUserChallengeProgress(ctx context.Context, id uuid.UUID, expected, progress int, completedAt *time.Time) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE user_challenges
		SET progress = ?, is_completed = ?, completed_at = ?
		WHERE id = ? AND progress = ? AND is_completed = 0`,
		progress, completedAt != nil, nullMillis(completedAt), id, expected,
	)
	if err != nil {
		return false, fmt.Errorf("save challenge progress: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (d *DB) CountCompletedChallenges(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_challenges WHERE user_id = ? AND is_completed = 1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed challenges: %w", err)
	}
	return count, nil
}
