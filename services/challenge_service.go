package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"poopyPalsAPI/internal/metrics"
	"poopyPalsAPI/internal/notification"
	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/challenge"
	"poopyPalsAPI/internal/types/poop"
	"poopyPalsAPI/utils"

	"github.com/google/uuid"
)

// Morning hours, inclusive, counted by consistentTime challenges.
const (
	morningStartHour = 6
	morningEndHour   = 9
)

type challengeStore interface {
	store.ChallengeStore
	ListLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*poop.Log, error)
	AddCoins(ctx context.Context, id uuid.UUID, amount int) error
}

type ChallengeService struct {
	store    challengeStore
	notifier Notifier
	loc      *time.Location
	now      clock
	source   randSource
}

func NewChallengeService(s challengeStore, notifier Notifier, loc *time.Location) *ChallengeService {
	if loc == nil {
		loc = time.UTC
	}
	svc := &ChallengeService{
		store:    s,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
	}
	svc.source = clockSeeded(func() time.Time { return svc.now() })
	return svc
}

func (s *ChallengeService) SetClock(now func() time.Time) {
	s.now = now
}

// SetRandSource replaces the per-call random source used for assignment.
func (s *ChallengeService) SetRandSource(source func() rand.Source) {
	s.source = source
}

func (s *ChallengeService) InitializeChallenges(ctx context.Context, challenges []*challenge.Challenge) error {
	for _, c := range challenges {
		if err := s.store.UpsertChallenge(ctx, c); err != nil {
			return err
		}
	}
	log.Printf("Initialized %d challenges", len(challenges))
	return nil
}

func (s *ChallengeService) ListChallenges(ctx context.Context) ([]*challenge.Challenge, error) {
	challenges, err := s.store.ListChallenges(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, nil
}

func (s *ChallengeService) ListUserChallenges(ctx context.Context, userID uuid.UUID) (*challenge.UserChallengesResponse, error) {
	all, err := s.store.ListUserChallenges(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list user challenges: %w", err)
	}

	resp := &challenge.UserChallengesResponse{
		Active:    []*challenge.UserChallengeWithChallenge{},
		Completed: []*challenge.UserChallengeWithChallenge{},
	}
	for _, uc := range all {
		if uc.IsCompleted {
			resp.Completed = append(resp.Completed, uc)
		} else {
			resp.Active = append(resp.Active, uc)
		}
	}
	return resp, nil
}

// UpdateChallengeProgress re-evaluates every incomplete assignment of the
// user against the logs in its window and returns those completed by this
// pass. The first error stops the pass; updates already written stay.
func (s *ChallengeService) UpdateChallengeProgress(ctx context.Context, userID uuid.UUID) ([]*challenge.UserChallengeWithChallenge, error) {
	active, err := s.store.ListUserChallenges(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load active challenges: %w", err)
	}

	now := s.now()
	completed := []*challenge.UserChallengeWithChallenge{}

	for _, uc := range active {
		cond := uc.Challenge.Condition
		from := now.AddDate(0, 0, -cond.TimeframeDays())
		logs, err := s.store.ListLogs(ctx, userID, from, now)
		if err != nil {
			return completed, fmt.Errorf("failed to load logs for challenge %s: %w", uc.Challenge.Key, err)
		}

		progress, done, ok := s.evaluate(cond, uc.Progress, logs)
		if !ok {
			log.Printf("WARNING: challenge %s uses unsupported condition %q, skipping", uc.Challenge.Key, cond.Type)
			continue
		}
		if progress == uc.Progress && !done {
			continue
		}

		var completedAt *time.Time
		if done {
			completedAt = &now
		}
		saved, err := s.store.SaveUserChallengeProgress(ctx, uc.ID, uc.Progress, progress, completedAt)
		if err != nil {
			return completed, fmt.Errorf("failed to save progress for challenge %s: %w", uc.Challenge.Key, err)
		}
		if !saved {
			log.Printf("Challenge %s for user %s was updated concurrently, skipping", uc.ID, userID)
			continue
		}

		uc.Progress = progress
		if !done {
			continue
		}
		uc.IsCompleted = true
		uc.CompletedAt = completedAt
		completed = append(completed, uc)

		if err := s.onCompleted(ctx, userID, uc); err != nil {
			return completed, err
		}
	}

	return completed, nil
}

// evaluate computes the new progress for one condition. ok is false for
// condition types without an evaluator.
func (s *ChallengeService) evaluate(cond challenge.Condition, current int, logs []*poop.Log) (progress int, done bool, ok bool) {
	switch cond.Type {
	case challenge.ConditionLogCount:
		progress = len(logs)

	case challenge.ConditionConsistentTime:
		for _, l := range logs {
			hour := l.LoggedAt.In(s.loc).Hour()
			if hour >= morningStartHour && hour <= morningEndHour {
				progress++
			}
		}

	case challenge.ConditionRatingAchieved:
		ratings := make(map[poop.Rating]struct{})
		for _, l := range logs {
			ratings[l.Rating] = struct{}{}
		}
		progress = len(ratings)

	case challenge.ConditionStreakReached:
		if len(logs) < cond.Target {
			return current, false, true
		}
		dates := make(map[string]struct{})
		for _, l := range logs {
			dates[utils.DateKey(l.LoggedAt.In(s.loc))] = struct{}{}
		}
		progress = len(dates)

	default:
		return current, false, false
	}

	return progress, progress >= cond.Target, true
}

func (s *ChallengeService) onCompleted(ctx context.Context, userID uuid.UUID, uc *challenge.UserChallengeWithChallenge) error {
	metrics.ChallengesCompleted.WithLabelValues(string(uc.Challenge.Condition.Type)).Inc()
	log.Printf("User %s completed challenge %s", userID, uc.Challenge.Key)

	if uc.Challenge.Reward > 0 {
		if err := s.store.AddCoins(ctx, userID, uc.Challenge.Reward); err != nil {
			return fmt.Errorf("failed to credit reward for challenge %s: %w", uc.Challenge.Key, err)
		}
	}

	if s.notifier != nil {
		_, err := s.notifier.CreateFromTemplate(ctx, userID, notification.TemplateChallengeCompleted, map[string]any{
			"title":  uc.Challenge.Title,
			"reward": uc.Challenge.Reward,
		}, nil)
		if err != nil {
			log.Printf("Failed to notify user %s about challenge %s: %v", userID, uc.Challenge.Key, err)
		}
	}
	return nil
}

// AssignChallenges tops up the user's active challenges from the catalog,
// at most one new assignment per type per call and never above the type's cap.
func (s *ChallengeService) AssignChallenges(ctx context.Context, userID uuid.UUID) ([]*challenge.UserChallengeWithChallenge, error) {
	catalog, err := s.store.ListChallenges(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge catalog: %w", err)
	}
	active, err := s.store.ListUserChallenges(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load active challenges: %w", err)
	}

	assigned := make(map[uuid.UUID]bool, len(active))
	counts := make(map[challenge.ChallengeType]int)
	for _, uc := range active {
		assigned[uc.ChallengeID] = true
		counts[uc.Challenge.Type]++
	}

	candidates := make(map[challenge.ChallengeType][]*challenge.Challenge)
	for _, c := range catalog {
		if !assigned[c.ID] {
			candidates[c.Type] = append(candidates[c.Type], c)
		}
	}

	types := make([]challenge.ChallengeType, 0, len(candidates))
	for t := range candidates {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	rng := rand.New(s.source())
	now := s.now()
	created := []*challenge.UserChallengeWithChallenge{}

	for _, t := range types {
		pool := candidates[t]
		if counts[t] >= challenge.MaxActive(t) || len(pool) == 0 {
			continue
		}

		pick := pool[rng.Intn(len(pool))]
		uc := &challenge.UserChallenge{
			ID:          uuid.New(),
			UserID:      userID,
			ChallengeID: pick.ID,
			AssignedAt:  now,
		}
		ok, err := s.store.AssignUserChallenge(ctx, uc, t, challenge.MaxActive(t))
		if err != nil {
			return created, fmt.Errorf("failed to assign challenge %s: %w", pick.Key, err)
		}
		if !ok {
			log.Printf("Skipped assigning %s to user %s: %s cap reached by a concurrent pass", pick.Key, userID, t)
			continue
		}

		counts[t]++
		metrics.ChallengesAssigned.WithLabelValues(string(t)).Inc()
		created = append(created, &challenge.UserChallengeWithChallenge{UserChallenge: *uc, Challenge: *pick})
	}

	if len(created) > 0 {
		log.Printf("Assigned %d challenges to user %s", len(created), userID)
	}
	return created, nil
}
