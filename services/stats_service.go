package services

import (
	"context"
	"fmt"
	"time"

	"poopyPalsAPI/internal/achievement"
	"poopyPalsAPI/internal/stats"
	"poopyPalsAPI/internal/types/calendar"
	"poopyPalsAPI/internal/types/poop"
	"poopyPalsAPI/internal/types/streak"
	"poopyPalsAPI/internal/user"
	"poopyPalsAPI/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const maxDailyCountDays = 366

type statsStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	ListLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*poop.Log, error)
	CountCompletedChallenges(ctx context.Context, userID uuid.UUID) (int, error)
	ListAchievementsWithStatus(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithStatus, error)
}

type StatsService struct {
	store statsStore
	loc   *time.Location
	now   clock
}

func NewStatsService(s statsStore, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{store: s, loc: loc, now: time.Now}
}

func (s *StatsService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *StatsService) GetUserStats(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error) {
	var (
		u            *user.User
		logs         []*poop.Log
		completed    int
		achievements []*achievement.AchievementWithStatus
	)
	now := s.now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		u, err = s.store.GetUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = s.store.ListLogs(gctx, userID, time.Unix(0, 0), now)
		return err
	})
	g.Go(func() error {
		var err error
		completed, err = s.store.CountCompletedChallenges(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		achievements, err = s.store.ListAchievementsWithStatus(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	today := utils.StartOfDay(now.In(s.loc))
	weekStart := today.AddDate(0, 0, -int((today.Weekday()+6)%7))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc)

	out := &stats.UserStats{
		TotalLogs:           len(logs),
		RatingBreakdown:     make(map[poop.Rating]int, len(poop.Ratings)),
		ChallengesCompleted: completed,
		Coins:               u.Coins,
	}
	for _, r := range poop.Ratings {
		out.RatingBreakdown[r] = 0
	}
	for _, a := range achievements {
		if a.Unlocked {
			out.AchievementsCount++
		}
	}

	var totalDuration, totalConsistency int
	for _, l := range logs {
		local := l.LoggedAt.In(s.loc)
		if utils.SameDay(local, today) {
			out.TodayStatus = true
		}
		if !local.Before(weekStart) {
			out.LogsThisWeek++
		}
		if !local.Before(monthStart) {
			out.LogsThisMonth++
		}
		out.RatingBreakdown[l.Rating]++
		totalDuration += l.Duration
		totalConsistency += l.Consistency
	}

	st := streak.Compute(loggedTimes(logs), now.In(s.loc))
	out.CurrentStreak = st.CurrentStreak
	out.LongestStreak = st.LongestStreak

	if len(logs) > 0 {
		n := float64(len(logs))
		out.AverageDuration = roundTenth(float64(totalDuration) / n)
		out.AverageConsistency = roundTenth(float64(totalConsistency) / n)
		hour := mostCommonHour(logs, s.loc)
		out.MostCommonHour = &hour

		good := out.RatingBreakdown[poop.RatingGreat] + out.RatingBreakdown[poop.RatingGood]
		out.GutScore = utils.CalculateGutScore(float64(good)/n, float64(totalConsistency)/n, out.CurrentStreak)
	}

	return out, nil
}

// GetCalendar returns one entry per day of the month with that day's log count.
func (s *StatsService) GetCalendar(ctx context.Context, userID uuid.UUID, year, month int) (*calendar.CalendarResponse, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	}
	if year < 1970 || year > 9999 {
		return nil, fmt.Errorf("%w: year out of range", ErrValidation)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 1, 0)

	logs, err := s.store.ListLogs(ctx, userID, start, end.Add(-time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar logs: %w", err)
	}
	counts := countByDay(logs, s.loc)

	today := s.now().In(s.loc)
	resp := &calendar.CalendarResponse{Year: year, Month: month, Days: []*calendar.CalendarDay{}}
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		count := counts[utils.DateKey(day)]
		resp.Days = append(resp.Days, &calendar.CalendarDay{
			Date:      day,
			LogCount:  count,
			LoggedDay: count > 0,
			IsToday:   utils.SameDay(day, today),
		})
	}
	return resp, nil
}

// GetDailyCounts returns the log count for each of the last days days,
// oldest first and ending today.
func (s *StatsService) GetDailyCounts(ctx context.Context, userID uuid.UUID, days int) ([]*calendar.DailyCount, error) {
	if days < 1 || days > maxDailyCountDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrValidation, maxDailyCountDays)
	}

	now := s.now()
	today := utils.StartOfDay(now.In(s.loc))
	start := today.AddDate(0, 0, -(days - 1))

	logs, err := s.store.ListLogs(ctx, userID, start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily logs: %w", err)
	}
	counts := countByDay(logs, s.loc)

	out := make([]*calendar.DailyCount, 0, days)
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		key := utils.DateKey(day)
		out = append(out, &calendar.DailyCount{Date: key, Count: counts[key]})
	}
	return out, nil
}

func countByDay(logs []*poop.Log, loc *time.Location) map[string]int {
	counts := make(map[string]int)
	for _, l := range logs {
		counts[utils.DateKey(l.LoggedAt.In(loc))]++
	}
	return counts
}

func roundTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
