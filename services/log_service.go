package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"poopyPalsAPI/internal/metrics"
	"poopyPalsAPI/internal/store"
	"poopyPalsAPI/internal/types/poop"

	"github.com/google/uuid"
)

// postLogTimeout bounds the background work that follows a new log.
const postLogTimeout = 30 * time.Second

type LogService struct {
	store        store.LogStore
	challenges   *ChallengeService
	achievements *AchievementService
	now          clock
	wg           sync.WaitGroup
}

func NewLogService(s store.LogStore, challenges *ChallengeService, achievements *AchievementService) *LogService {
	return &LogService{
		store:        s,
		challenges:   challenges,
		achievements: achievements,
		now:          time.Now,
	}
}

func (s *LogService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateLog records a visit and kicks off challenge evaluation, assignment
// and achievement checks in the background.
func (s *LogService) CreateLog(ctx context.Context, userID uuid.UUID, req *poop.CreateLogRequest) (*poop.Log, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	loggedAt := now
	if req.LoggedAt != nil {
		if req.LoggedAt.After(now) {
			return nil, fmt.Errorf("%w: logged_at cannot be in the future", ErrValidation)
		}
		loggedAt = *req.LoggedAt
	}

	entry := &poop.Log{
		ID:          uuid.New(),
		UserID:      userID,
		LoggedAt:    loggedAt,
		Duration:    req.Duration,
		Rating:      req.Rating,
		Consistency: req.Consistency,
		Notes:       req.Notes,
		CreatedAt:   now,
	}
	if err := s.store.CreateLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create log: %w", err)
	}
	metrics.LogsRecorded.Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.afterLog(userID)
	}()

	return entry, nil
}

func (s *LogService) afterLog(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), postLogTimeout)
	defer cancel()

	if s.challenges != nil {
		if _, err := s.challenges.UpdateChallengeProgress(ctx, userID); err != nil {
			log.Printf("Failed to update challenge progress for user %s: %v", userID, err)
		}
		if _, err := s.challenges.AssignChallenges(ctx, userID); err != nil {
			log.Printf("Failed to assign challenges for user %s: %v", userID, err)
		}
	}
	if s.achievements != nil {
		if _, err := s.achievements.CheckAchievements(ctx, userID); err != nil {
			log.Printf("Failed to check achievements for user %s: %v", userID, err)
		}
	}
}

// Wait blocks until all background post-log work has finished.
func (s *LogService) Wait() {
	s.wg.Wait()
}

func (s *LogService) GetLog(ctx context.Context, userID, id uuid.UUID) (*poop.Log, error) {
	return s.store.GetLog(ctx, userID, id)
}

func (s *LogService) ListLogs(ctx context.Context, userID uuid.UUID, page, pageSize int) (*poop.LogListResponse, error) {
	logs, err := s.store.ListRecentLogs(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return &poop.LogListResponse{Logs: logs, Page: page, PageSize: pageSize}, nil
}
