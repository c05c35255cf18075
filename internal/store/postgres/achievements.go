package postgres

import (
	"context"
	"time"

	"poopyPalsAPI/internal/achievement"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (d *DB) UpsertAchievement(ctx context.Context, a *achievement.Achievement) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := d.exec(ctx, "upsert achievement "+a.Key, `
		INSERT INTO achievements (id, key, name, description, icon, criteria_type, criteria_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			key = EXCLUDED.key,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			criteria_type = EXCLUDED.criteria_type,
			criteria_value = EXCLUDED.criteria_value`,
		a.ID, a.Key, a.Name, a.Description, a.Icon, a.CriteriaType, a.CriteriaValue, a.CreatedAt)
	return err
}

func (d *DB) ListAchievementsWithStatus(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithStatus, error) {
	var result []*achievement.AchievementWithStatus
	err := d.query(ctx, "list achievements", `
		SELECT a.id, a.key, a.name, a.description, a.icon, a.criteria_type, a.criteria_value,
			a.created_at, ua.unlocked_at
		FROM achievements a
		LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = $1
		ORDER BY a.criteria_type, a.criteria_value`,
		[]any{userID},
		func() { result = []*achievement.AchievementWithStatus{} },
		func(rows pgx.Rows) error {
			a := &achievement.AchievementWithStatus{}
			err := rows.Scan(&a.ID, &a.Key, &a.Name, &a.Description, &a.Icon, &a.CriteriaType,
				&a.CriteriaValue, &a.CreatedAt, &a.UnlockedAt)
			if err != nil {
				return err
			}
			a.Unlocked = a.UnlockedAt != nil
			result = append(result, a)
			return nil
		})
	return result, err
}

func (d *DB) UnlockAchievement(ctx context.Context, userID, achievementID uuid.UUID, at time.Time) (bool, error) {
	tag, err := d.exec(ctx, "unlock achievement", `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		userID, achievementID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
