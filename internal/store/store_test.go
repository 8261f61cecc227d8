package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// setupTestDB creates an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func day(n int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestActivities(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	hr := 150.0
	for i, d := range []int{1, 5, 10} {
		a := model.ActivitySample{
			ID:           string(rune('a' + i)),
			Date:         day(d).Add(7 * time.Hour),
			Sport:        "running",
			DurationMin:  45,
			DistanceKm:   9,
			TrainingLoad: 60,
			Source:       "strava",
		}
		if i == 0 {
			a.AvgHR = &hr
			a.ZoneMinutes = []float64{5, 20, 15, 5, 0}
		}
		require.NoError(t, db.UpsertActivity(ctx, "u1", a))
	}

	all, err := db.ListActivities(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "a", all[0].ID)
	require.NotNil(t, all[0].AvgHR)
	require.Equal(t, 150.0, *all[0].AvgHR)
	require.Nil(t, all[0].MaxHR)
	require.Equal(t, []float64{5, 20, 15, 5, 0}, all[0].ZoneMinutes)
	require.True(t, all[0].Date.Equal(day(1).Add(7*time.Hour)))

	recent, err := db.ListActivities(ctx, "u1", day(5))
	require.NoError(t, err)
	require.Len(t, recent, 2)

	other, err := db.ListActivities(ctx, "u2", time.Time{})
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestUpsertActivityReplaces(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := model.ActivitySample{ID: "x", Date: day(0), Sport: "cycling", DurationMin: 60, TrainingLoad: 40}
	require.NoError(t, db.UpsertActivity(ctx, "u1", a))
	a.TrainingLoad = 75
	require.NoError(t, db.UpsertActivity(ctx, "u1", a))

	n, err := db.CountActivities(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := db.ListActivities(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Equal(t, 75.0, got[0].TrainingLoad)
}

func TestUpsertActivityRejectsInvalid(t *testing.T) {
	db := setupTestDB(t)
	err := db.UpsertActivity(context.Background(), "u1", model.ActivitySample{ID: "bad", Date: day(0), DurationMin: -1})
	if !errors.Is(err, model.ErrInvalidSample) {
		t.Errorf("UpsertActivity() error = %v, want ErrInvalidSample", err)
	}
}

func TestRecoveryUpsertPerDay(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertRecovery(ctx, "u1", model.RecoveryMetricsSample{
		Date: day(0).Add(6 * time.Hour), SubjectiveFatigue: 3, HRV: model.Float(62),
	}))
	// a second entry the same day replaces the first
	require.NoError(t, db.UpsertRecovery(ctx, "u1", model.RecoveryMetricsSample{
		Date: day(0).Add(21 * time.Hour), SubjectiveFatigue: 7, SleepScore: model.Float(70),
	}))
	require.NoError(t, db.UpsertRecovery(ctx, "u1", model.RecoveryMetricsSample{
		Date: day(2), SubjectiveFatigue: 4,
	}))

	samples, err := db.ListRecovery(ctx, "u1", day(0))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Equal(t, 7.0, samples[0].SubjectiveFatigue)
	require.Nil(t, samples[0].HRV)
	require.Equal(t, 70.0, *samples[0].SleepScore)
	require.Equal(t, "2024-03-01", model.DayKey(samples[0].Date))

	later, err := db.ListRecovery(ctx, "u1", day(1))
	require.NoError(t, err)
	require.Len(t, later, 1)

	err = db.UpsertRecovery(ctx, "u1", model.RecoveryMetricsSample{Date: day(3), SubjectiveFatigue: 11})
	require.ErrorIs(t, err, model.ErrInvalidSample)
}

func TestPlans(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.LatestPlan(ctx, "u1")
	require.ErrorIs(t, err, ErrPlanNotFound)

	first, err := model.NewPlan("", "u1", []model.PlannedWorkout{
		{Date: day(1), WorkoutType: "tempo", ExpectedFatigue: 65, DurationMin: 50, Tags: []string{"threshold"}},
		{Date: day(0), WorkoutType: "easy", ExpectedFatigue: 30, DurationMin: 40},
	})
	require.NoError(t, err)

	id, err := db.SavePlan(ctx, first)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := db.GetPlan(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)
	require.Len(t, got.Workouts, 2)
	require.Equal(t, "2024-03-01", model.DayKey(got.Workouts[0].Date))
	require.Equal(t, 65.0, got.Workouts[1].ExpectedFatigue)
	require.Equal(t, []string{"threshold"}, got.Workouts[1].Tags)

	second := got.Clone()
	second.ID = "manual-id"
	second.Workouts[0].ExpectedFatigue = 0
	_, err = db.SavePlan(ctx, second)
	require.NoError(t, err)

	latest, err := db.LatestPlan(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "manual-id", latest.ID)

	_, err = db.GetPlan(ctx, "missing")
	require.ErrorIs(t, err, ErrPlanNotFound)

	_, err = db.SavePlan(ctx, model.Plan{})
	require.Error(t, err)
}

func TestSyncStateAndAuth(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	v, err := db.GetSyncState(ctx, KeyLastSync)
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, db.SetSyncState(ctx, KeyLastSync, "2024-03-01T00:00:00Z"))
	require.NoError(t, db.SetSyncState(ctx, KeyLastSync, "2024-03-02T00:00:00Z"))
	v, err = db.GetSyncState(ctx, KeyLastSync)
	require.NoError(t, err)
	require.Equal(t, "2024-03-02T00:00:00Z", v)

	_, err = db.GetAuth(ctx)
	require.ErrorIs(t, err, ErrNoAuth)

	exp := time.Unix(1700000000, 0)
	require.NoError(t, db.SaveAuth(ctx, &Auth{AthleteID: 7, AccessToken: "a", RefreshToken: "r", ExpiresAt: exp}))
	auth, err := db.GetAuth(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(7), auth.AthleteID)
	require.Equal(t, "r", auth.RefreshToken)
	require.True(t, auth.ExpiresAt.Equal(exp))
}

func TestProfiles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, ErrProfileNotFound)

	p := model.UserTrainingProfile{
		UserID:           "u1",
		Age:              44,
		MaxHR:            182,
		RestingHR:        48,
		FitnessLevel:     model.FitnessAdvanced,
		AvailableDays:    []time.Weekday{time.Tuesday, time.Saturday},
		PreferredMinutes: map[time.Weekday]float64{time.Saturday: 120},
	}
	require.NoError(t, db.SaveProfile(ctx, p))

	got, err := db.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, p, got)

	require.Error(t, db.SaveProfile(ctx, model.UserTrainingProfile{}))
}
