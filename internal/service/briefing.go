package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/davidjes1/trAIn-sub002/internal/analysis"
	"github.com/davidjes1/trAIn-sub002/internal/apperrors"
	"github.com/davidjes1/trAIn-sub002/internal/cache"
	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/recommend"
	"github.com/davidjes1/trAIn-sub002/internal/store"
)

// DataSource is the slice of the store the briefing reads
type DataSource interface {
	GetProfile(ctx context.Context, userID string) (model.UserTrainingProfile, error)
	ListActivities(ctx context.Context, userID string, since time.Time) ([]model.ActivitySample, error)
	ListRecovery(ctx context.Context, userID string, since time.Time) ([]model.RecoveryMetricsSample, error)
	LatestPlan(ctx context.Context, userID string) (model.Plan, error)
}

// Briefing is the daily aggregate: readiness, tomorrow's workout and the
// overtraining screen computed from one data snapshot.
type Briefing struct {
	UserID      string    `json:"userId"`
	Date        time.Time `json:"date"`
	GeneratedAt time.Time `json:"generatedAt"`

	Readiness      *analysis.ReadinessAssessment    `json:"readiness,omitempty"`
	Recommendation *recommend.WorkoutRecommendation `json:"recommendation,omitempty"`
	Overtraining   *analysis.OvertrainingCheck      `json:"overtraining,omitempty"`
	PlannedToday   *model.PlannedWorkout            `json:"plannedToday,omitempty"`

	// DailyLoads holds the last LoadChartDays of training load, oldest first
	DailyLoads []float64 `json:"dailyLoads"`

	// Fallback is set when the recommendation failed and Advice carries the
	// conservative default instead
	Fallback bool   `json:"fallback"`
	Advice   string `json:"advice"`

	Warnings []string `json:"warnings"`
	Cached   bool     `json:"-"`
}

// BriefingService assembles and caches the daily briefing
type BriefingService struct {
	engine *Engine
	data   DataSource
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	activityDays int
	recoveryDays int
}

// NewBriefingService creates the service. ttl <= 0 uses cache.DefaultTTL.
func NewBriefingService(engine *Engine, data DataSource, c cache.Cache, ttl time.Duration, logger *slog.Logger) *BriefingService {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &BriefingService{
		engine: engine,
		data:   data,
		cache:  c,
		ttl:    ttl,
		now:    engine.now,
		logger: logger.With("component", "service.BriefingService"),

		activityDays: ActivityHistoryDays,
		recoveryDays: RecoveryHistoryDays,
	}
}

// SetWindows changes how many days of history the briefing loads.
// Non-positive values keep the current window. The activity window never
// exceeds what the recommender accepts.
func (s *BriefingService) SetWindows(activityDays, recoveryDays int) {
	if activityDays > 0 {
		s.activityDays = min(activityDays, recommend.MaxHistoryDays)
	}
	if recoveryDays > 0 {
		s.recoveryDays = recoveryDays
	}
}

// Daily returns the briefing for userID on date, from cache when fresh.
// A zero date means today.
func (s *BriefingService) Daily(ctx context.Context, userID string, date time.Time) (*Briefing, error) {
	if userID == "" {
		return nil, invalid(errors.New("user id is required"))
	}
	if date.IsZero() {
		date = s.now()
	}
	date = model.Day(date)
	key := cache.BriefingKey(userID, model.DayKey(date))

	if b, ok := s.cached(ctx, key); ok {
		s.logger.Debug("briefing cache hit", "user_id", userID, "date", model.DayKey(date))
		return b, nil
	}

	b, err := s.build(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding briefing: %w", err)
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.logger.Warn("failed to cache briefing", "key", key, "error", err)
	}
	return b, nil
}

// Invalidate drops the cached briefing for userID on date
func (s *BriefingService) Invalidate(ctx context.Context, userID string, date time.Time) error {
	return s.cache.Delete(ctx, cache.BriefingKey(userID, model.DayKey(date)))
}

func (s *BriefingService) cached(ctx context.Context, key string) (*Briefing, bool) {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("briefing cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var b Briefing
	if err := json.Unmarshal(payload, &b); err != nil {
		s.logger.Warn("discarding undecodable cached briefing", "key", key, "error", err)
		return nil, false
	}
	b.Cached = true
	return &b, true
}

func (s *BriefingService) build(ctx context.Context, userID string, date time.Time) (*Briefing, error) {
	profile, err := s.data.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrProfileNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, "no profile stored for "+userID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	activities, err := s.data.ListActivities(ctx, userID, model.AddDays(date, -s.activityDays))
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	activities = activitiesUpTo(activities, date)

	recovery, err := s.data.ListRecovery(ctx, userID, model.AddDays(date, -s.recoveryDays))
	if err != nil {
		return nil, fmt.Errorf("loading recovery samples: %w", err)
	}
	recovery = recoveryUpTo(recovery, date)

	b := &Briefing{
		UserID:      userID,
		Date:        date,
		GeneratedAt: s.now(),
		DailyLoads:  analysis.DailyLoadSeries(activities, date, LoadChartDays),
		Warnings:    []string{},
	}

	var (
		readiness    Result[analysis.ReadinessAssessment]
		workout      Result[recommend.WorkoutRecommendation]
		overtraining Result[analysis.OvertrainingCheck]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		readiness = s.engine.AssessReadiness(userID, activities, recovery, &profile, date)
		return gctx.Err()
	})
	g.Go(func() error {
		workout = s.engine.RecommendWorkout(recommend.Request{
			UserID:      userID,
			CurrentDate: date,
			Profile:     &profile,
			Activities:  activities,
			Recovery:    recovery,
		})
		return gctx.Err()
	})
	g.Go(func() error {
		overtraining = s.engine.CheckOvertrainingMarkers(userID, activities, recovery, date)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if readiness.Success {
		b.Readiness = readiness.Data
	} else {
		b.Warnings = append(b.Warnings, "readiness unavailable: "+readiness.Error)
	}
	b.Warnings = append(b.Warnings, readiness.Warnings...)

	if workout.Success {
		b.Recommendation = workout.Data
		b.Advice = fmt.Sprintf("%s tomorrow (%.0f min)", workout.Data.RecommendedWorkout.Name, workout.Data.RecommendedWorkout.DurationMin)
	} else {
		b.Fallback = true
		b.Advice = FallbackAdvice
		b.Warnings = append(b.Warnings, "recommendation unavailable: "+workout.Error)
	}
	b.Warnings = append(b.Warnings, workout.Warnings...)

	if overtraining.Success {
		b.Overtraining = overtraining.Data
	}
	b.Warnings = append(b.Warnings, overtraining.Warnings...)

	if p, err := s.data.LatestPlan(ctx, userID); err == nil {
		if i := p.IndexOf(date); i >= 0 {
			w := p.Workouts[i]
			b.PlannedToday = &w
		}
	} else if !errors.Is(err, store.ErrPlanNotFound) {
		s.logger.Warn("failed to load plan for briefing", "user_id", userID, "error", err)
	}

	s.logger.Info("briefing built",
		"user_id", userID,
		"date", model.DayKey(date),
		"activities", len(activities),
		"recovery_samples", len(recovery),
		"fallback", b.Fallback,
	)
	return b, nil
}

func activitiesUpTo(in []model.ActivitySample, date time.Time) []model.ActivitySample {
	out := make([]model.ActivitySample, 0, len(in))
	for _, a := range in {
		if !model.Day(a.Date).After(date) {
			out = append(out, a)
		}
	}
	return out
}

func recoveryUpTo(in []model.RecoveryMetricsSample, date time.Time) []model.RecoveryMetricsSample {
	out := make([]model.RecoveryMetricsSample, 0, len(in))
	for _, r := range in {
		if !model.Day(r.Date).After(date) {
			out = append(out, r)
		}
	}
	return out
}
