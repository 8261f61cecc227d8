package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidjes1/trAIn-sub002/internal/analysis"
	"github.com/davidjes1/trAIn-sub002/internal/apperrors"
	"github.com/davidjes1/trAIn-sub002/internal/cache"
	"github.com/davidjes1/trAIn-sub002/internal/logger"
	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/store"
	"github.com/davidjes1/trAIn-sub002/internal/strava"
)

type fakeFetcher struct {
	pages  [][]strava.Activity
	afters []time.Time
	err    error
}

func (f *fakeFetcher) GetActivities(_ context.Context, after time.Time, page, _ int) ([]strava.Activity, error) {
	f.afters = append(f.afters, after)
	if f.err != nil {
		return nil, f.err
	}
	if page > len(f.pages) {
		return nil, nil
	}
	return f.pages[page-1], nil
}

func openStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConvertActivityLoad(t *testing.T) {
	zones := analysis.HRZones{RestingHR: 50, MaxHR: 185}
	start := today.Add(7 * time.Hour)

	tests := []struct {
		name     string
		activity strava.Activity
		want     float64
	}{
		{"heart rate trimp", strava.Activity{ID: 1, Type: "Run", StartDate: start, MovingTime: 3600, AverageHeartrate: 150}, 184.3},
		{"suffer score", strava.Activity{ID: 2, Type: "Ride", StartDate: start, MovingTime: 3600, SufferScore: 87}, 87},
		{"duration only", strava.Activity{ID: 3, Type: "Yoga", StartDate: start, MovingTime: 2700}, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertActivity(tt.activity, zones, "male")
			if got.TrainingLoad != tt.want {
				t.Errorf("TrainingLoad = %v, want %v", got.TrainingLoad, tt.want)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}

	run := ConvertActivity(strava.Activity{ID: 9, Type: "Run", StartDate: start, MovingTime: 1500, Distance: 5000, AverageSpeed: 3.333}, zones, "male")
	require.Equal(t, "9", run.ID)
	require.Equal(t, "running", run.Sport)
	require.Equal(t, 5.0, run.DistanceKm)
	require.Equal(t, 5.0, *run.PaceMinPerKm)
	require.Equal(t, 12.0, *run.SpeedKmh)
	require.Equal(t, "strava", run.Source)
}

func TestSyncStoresAndInvalidates(t *testing.T) {
	db := openStore(t)
	c := cache.NewMemoryCache(nil)
	ctx := context.Background()
	profile := *testProfile()

	key := cache.BriefingKey("u1", model.DayKey(today))
	require.NoError(t, c.Set(ctx, key, []byte("stale"), time.Hour))

	fetcher := &fakeFetcher{pages: [][]strava.Activity{{
		{ID: 1, Type: "Run", StartDate: today.Add(-24 * time.Hour), MovingTime: 3000, AverageHeartrate: 145},
		{ID: 2, Type: "Ride", StartDate: today.Add(-48 * time.Hour), MovingTime: 3600, SufferScore: 60},
	}}}
	svc := NewSyncService(fetcher, db, c, profile, fixedNow, logger.Discard())

	progress := make(chan SyncProgress, 10)
	res, err := svc.Sync(ctx, progress)
	require.NoError(t, err)
	require.Equal(t, 2, res.ActivitiesStored)
	require.Equal(t, 1, res.WithHeartrate)
	require.True(t, res.Since.IsZero())

	var updates []SyncProgress
	for p := range progress {
		updates = append(updates, p)
	}
	require.Len(t, updates, 1)
	require.Equal(t, 2, updates[0].Stored)

	stored, err := db.ListActivities(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, stored, 2)

	_, ok, _ := c.Get(ctx, key)
	require.False(t, ok, "today's briefing should be invalidated")

	last, err := db.GetSyncState(ctx, store.KeyLastSync)
	require.NoError(t, err)
	require.Equal(t, fixedNow().Format(time.RFC3339), last)

	// the next sync starts from the recorded time less the overlap
	fetcher.afters = nil
	_, err = svc.Sync(ctx, nil)
	require.NoError(t, err)
	require.True(t, fetcher.afters[0].Equal(fixedNow().Add(-SyncOverlap)), "after = %v", fetcher.afters[0])
}

func TestSyncUpstreamError(t *testing.T) {
	db := openStore(t)
	fetcher := &fakeFetcher{err: errors.New("boom")}
	svc := NewSyncService(fetcher, db, nil, *testProfile(), fixedNow, logger.Discard())

	_, err := svc.Sync(context.Background(), nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUpstream))

	last, _ := db.GetSyncState(context.Background(), store.KeyLastSync)
	require.Empty(t, last)
}

func TestSyncPagesWithProgress(t *testing.T) {
	db := openStore(t)
	var first, second []strava.Activity
	for i := 0; i < SyncPageSize; i++ {
		first = append(first, strava.Activity{ID: int64(i + 1), Type: "Run", StartDate: today.Add(-time.Duration(i+1) * time.Hour), MovingTime: 1800})
	}
	second = append(second, strava.Activity{ID: 500, Type: "Ride", StartDate: today.Add(-200 * time.Hour), MovingTime: 3600, AverageHeartrate: 130})
	fetcher := &fakeFetcher{pages: [][]strava.Activity{first, second}}
	svc := NewSyncService(fetcher, db, nil, *testProfile(), fixedNow, logger.Discard())

	progress := make(chan SyncProgress, 10)
	res, err := svc.Sync(context.Background(), progress)
	require.NoError(t, err)
	require.Equal(t, SyncPageSize+1, res.ActivitiesFetched)
	require.Equal(t, SyncPageSize+1, res.ActivitiesStored)
	require.Equal(t, 1, res.WithHeartrate)
	require.Len(t, fetcher.afters, 2)

	var updates []SyncProgress
	for p := range progress {
		updates = append(updates, p)
	}
	require.Equal(t, []SyncProgress{
		{Page: 1, Fetched: SyncPageSize, Stored: SyncPageSize},
		{Page: 2, Fetched: SyncPageSize + 1, Stored: SyncPageSize + 1},
	}, updates)
}

func TestSyncCanceled(t *testing.T) {
	db := openStore(t)
	fetcher := &fakeFetcher{pages: [][]strava.Activity{{{ID: 1, Type: "Run", StartDate: today, MovingTime: 600}}}}
	svc := NewSyncService(fetcher, db, nil, *testProfile(), fixedNow, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Sync(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, apperrors.IsCode(err, apperrors.CodeUpstream))
	require.Empty(t, fetcher.afters)

	last, _ := db.GetSyncState(context.Background(), store.KeyLastSync)
	require.Empty(t, last)
}
