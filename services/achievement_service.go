package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"poopyPalsAPI/internal/achievement"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/poop"
	"poopyPalsAPI/internal/types/streak"

	"github.com/google/uuid"
)

type achievementStore interface {
	store.AchievementStore
	ListLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*poop.Log, error)
	CountCompletedChallenges(ctx context.Context, userID uuid.UUID) (int, error)
}

type AchievementService struct {
	store    achievementStore
	notifier Notifier
	loc      *time.Location
	now      clock
}

func NewAchievementService(s achievementStore, notifier Notifier, loc *time.Location) *AchievementService {
	if loc == nil {
		loc = time.UTC
	}
	return &AchievementService{store: s, notifier: notifier, loc: loc, now: time.Now}
}

func (s *AchievementService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *AchievementService) InitializeAchievements(ctx context.Context, achievements []*achievement.Achievement) error {
	for _, a := range achievements {
		if err := s.store.UpsertAchievement(ctx, a); err != nil {
			return err
		}
	}
	log.Printf("Initialized %d achievements", len(achievements))
	return nil
}

func (s *AchievementService) ListAchievements(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithStatus, error) {
	achievements, err := s.store.ListAchievementsWithStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}

// CheckAchievements unlocks every achievement the user now qualifies for and
// returns the ones unlocked by this call.
func (s *AchievementService) CheckAchievements(ctx context.Context, userID uuid.UUID) ([]*achievement.Achievement, error) {
	all, err := s.store.ListAchievementsWithStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}

	pending := make([]*achievement.AchievementWithStatus, 0, len(all))
	for _, a := range all {
		if !a.Unlocked {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return []*achievement.Achievement{}, nil
	}

	progress, err := s.progress(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	unlocked := []*achievement.Achievement{}
	for _, a := range pending {
		if !a.Met(progress) {
			continue
		}
		ok, err := s.store.UnlockAchievement(ctx, userID, a.ID, now)
		if err != nil {
			return unlocked, fmt.Errorf("failed to unlock achievement %s: %w", a.Key, err)
		}
		if !ok {
			continue
		}

		ach := a.Achievement
		unlocked = append(unlocked, &ach)
		log.Printf("User %s unlocked achievement %s", userID, a.Key)

		if s.notifier != nil {
			_, err := s.notifier.CreateFromTemplate(ctx, userID, notification.TemplateAchievementUnlocked, map[string]any{
				"name":        a.Name,
				"description": a.Description,
			}, nil)
			if err != nil {
				log.Printf("Failed to notify user %s about achievement %s: %v", userID, a.Key, err)
			}
		}
	}
	return unlocked, nil
}

func (s *AchievementService) progress(ctx context.Context, userID uuid.UUID) (achievement.Progress, error) {
	logs, err := s.store.ListLogs(ctx, userID, time.Unix(0, 0), s.now())
	if err != nil {
		return achievement.Progress{}, fmt.Errorf("failed to load logs: %w", err)
	}
	completed, err := s.store.CountCompletedChallenges(ctx, userID)
	if err != nil {
		return achievement.Progress{}, fmt.Errorf("failed to count completed challenges: %w", err)
	}

	p := achievement.Progress{
		TotalLogs:           len(logs),
		LongestStreak:       streak.Longest(streak.Days(loggedTimes(logs), s.loc)),
		ChallengesCompleted: completed,
	}
	for _, l := range logs {
		if l.Rating == poop.RatingGreat {
			p.GreatRatings++
		}
	}
	return p, nil
}
