package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/analysis"
	"github.com/davidjes1/trAIn-sub002/internal/apperrors"
	"github.com/davidjes1/trAIn-sub002/internal/cache"
	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/store"
	"github.com/davidjes1/trAIn-sub002/internal/strava"
)

// ActivityFetcher pages activity summaries from the ingestion source
type ActivityFetcher = strava.PageFetcher

// SyncStore is the slice of the store sync writes to
type SyncStore interface {
	UpsertActivity(ctx context.Context, userID string, a model.ActivitySample) error
	GetSyncState(ctx context.Context, key string) (string, error)
	SetSyncState(ctx context.Context, key, value string) error
}

// SyncService orchestrates syncing data from Strava
type SyncService struct {
	client  ActivityFetcher
	store   SyncStore
	cache   cache.Cache
	profile model.UserTrainingProfile
	zones   analysis.HRZones
	now     func() time.Time
	logger  *slog.Logger
}

// NewSyncService creates a sync service for one athlete. The profile's HR
// values drive the TRIMP calculation. c may be nil.
func NewSyncService(client ActivityFetcher, st SyncStore, c cache.Cache, profile model.UserTrainingProfile, now func() time.Time, logger *slog.Logger) *SyncService {
	if now == nil {
		now = time.Now
	}
	return &SyncService{
		client:  client,
		store:   st,
		cache:   c,
		profile: profile,
		zones:   analysis.ZonesFromProfile(profile),
		now:     now,
		logger:  logger.With("component", "service.SyncService"),
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Page    int
	Fetched int
	Stored  int
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	Since             time.Time
	ActivitiesFetched int
	ActivitiesStored  int
	WithHeartrate     int
	Errors            []error
}

// Sync fetches activities since the last sync (less a small overlap),
// stores them with a training load and drops today's cached briefing.
// progress, when non-nil, is closed on return.
func (s *SyncService) Sync(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}
	last, err := s.store.GetSyncState(ctx, store.KeyLastSync)
	if err != nil {
		return result, fmt.Errorf("reading sync state: %w", err)
	}
	if last != "" {
		if t, err := time.Parse(time.RFC3339, last); err == nil {
			result.Since = t.Add(-SyncOverlap)
		}
	}
	started := s.now()

	err = strava.EachPage(ctx, s.client, result.Since, SyncPageSize, func(page int, activities []strava.Activity) error {
		result.ActivitiesFetched += len(activities)
		for _, a := range activities {
			sample := ConvertActivity(a, s.zones, s.profile.Sex)
			if err := s.store.UpsertActivity(ctx, s.profile.UserID, sample); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ID, err))
				continue
			}
			result.ActivitiesStored++
			if sample.AvgHR != nil {
				result.WithHeartrate++
			}
		}
		if progress != nil {
			select {
			case progress <- SyncProgress{Page: page, Fetched: result.ActivitiesFetched, Stored: result.ActivitiesStored}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	var pageErr *strava.PageError
	if errors.As(err, &pageErr) {
		return result, apperrors.Wrap(apperrors.CodeUpstream, fmt.Sprintf("fetching page %d", pageErr.Page), pageErr.Err)
	}
	if err != nil {
		return result, err
	}

	if err := s.store.SetSyncState(ctx, store.KeyLastSync, started.UTC().Format(time.RFC3339)); err != nil {
		return result, fmt.Errorf("recording sync time: %w", err)
	}

	if s.cache != nil && result.ActivitiesStored > 0 {
		key := cache.BriefingKey(s.profile.UserID, model.DayKey(started))
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to invalidate briefing", "key", key, "error", err)
		}
	}

	s.logger.Info("sync complete",
		"user_id", s.profile.UserID,
		"since", result.Since,
		"fetched", result.ActivitiesFetched,
		"stored", result.ActivitiesStored,
		"errors", len(result.Errors),
	)
	return result, nil
}

// ConvertActivity maps a Strava summary onto an ActivitySample. Training
// load is HR TRIMP when heart rate was recorded, else Strava's suffer
// score, else one unit per minute.
func ConvertActivity(a strava.Activity, zones analysis.HRZones, sex string) model.ActivitySample {
	sample := model.ActivitySample{
		ID:          strconv.FormatInt(a.ID, 10),
		Date:        a.StartDate,
		Sport:       a.Sport(),
		DurationMin: round1(a.DurationMin()),
		DistanceKm:  round1(a.Distance / 1000),
		Source:      "strava",
	}
	if a.AverageHeartrate > 0 {
		hr := a.AverageHeartrate
		sample.AvgHR = &hr
	}
	if a.MaxHeartrate > 0 {
		hr := a.MaxHeartrate
		sample.MaxHR = &hr
	}
	if a.AverageSpeed > 0 {
		kmh := round1(a.AverageSpeed * 3.6)
		sample.SpeedKmh = &kmh
		if sample.Sport == "running" {
			pace := round1(1000 / a.AverageSpeed / 60)
			sample.PaceMinPerKm = &pace
		}
	}
	if a.AverageWatts > 0 {
		w := a.AverageWatts
		sample.PowerWatts = &w
	}

	var trimp float64
	if sample.AvgHR != nil {
		trimp = analysis.TRIMP(sample.DurationMin, *sample.AvgHR, zones, sex)
	}
	switch {
	case trimp > 0:
		sample.TrainingLoad = trimp
	case a.SufferScore > 0:
		sample.TrainingLoad = float64(a.SufferScore)
	default:
		sample.TrainingLoad = analysis.EstimateLoad(sample, zones, sex)
	}
	sample.TrainingLoad = round1(sample.TrainingLoad)
	return sample
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
