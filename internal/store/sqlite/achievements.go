package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"poopyPalsAPI/internal/achievement"

	"github.com/google/uuid"
)

func (d *DB) UpsertAchievement(ctx context.Context, a *achievement.Achievement) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO achievements (id, key, name, description, icon, criteria_type, criteria_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			key = excluded.key,
			name = excluded.name,
			description = excluded.description,
			icon = excluded.icon,
			criteria_type = excluded.criteria_type,
			criteria_value = excluded.criteria_value`,
		a.ID, a.Key, a.Name, a.Description, a.Icon, a.CriteriaType, a.CriteriaValue, millis(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert achievement %s: %w", a.Key, err)
	}
	return nil
}

func (d *DB) ListAchievementsWithStatus(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithStatus, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT a.id, a.key, a.name, a.description, a.icon, a.criteria_type, a.criteria_value,
			a.created_at, ua.unlocked_at
		FROM achievements a
		LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = ?
		ORDER BY a.criteria_type, a.criteria_value`, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	result := []*achievement.AchievementWithStatus{}
	for rows.Next() {
		a := &achievement.AchievementWithStatus{}
		var createdAt int64
		var unlockedAt sql.NullInt64
		err := rows.Scan(&a.ID, &a.Key, &a.Name, &a.Description, &a.Icon, &a.CriteriaType,
			&a.CriteriaValue, &createdAt, &unlockedAt)
		if err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		a.CreatedAt = fromMillis(createdAt)
		a.UnlockedAt = timePtr(unlockedAt)
		a.Unlocked = a.UnlockedAt != nil
		result = append(result, a)
	}
	return result, rows.Err()
}

func (d *DB) UnlockAchievement(ctx context.Context, userID, achievementID uuid.UUID, at time.Time) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO user_achievements (id, user_id, achievement_id, unlocked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		uuid.New(), userID, achievementID, millis(at))
	if err != nil {
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
