package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidjes1/trAIn-sub002/internal/analysis"
	"github.com/davidjes1/trAIn-sub002/internal/logger"
	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/plan"
	"github.com/davidjes1/trAIn-sub002/internal/recommend"
)

var today = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return today.Add(9 * time.Hour) }

func newTestEngine() *Engine {
	return NewEngine(nil, recommend.NewSeededRand(7), fixedNow, logger.Discard())
}

func dailyActivities(end time.Time, days int, load float64) []model.ActivitySample {
	var out []model.ActivitySample
	for i := 0; i < days; i++ {
		d := model.AddDays(end, -i)
		out = append(out, model.ActivitySample{
			ID:           model.DayKey(d),
			Date:         d,
			Sport:        "running",
			DurationMin:  45,
			TrainingLoad: load,
		})
	}
	return out
}

func testProfile() *model.UserTrainingProfile {
	return &model.UserTrainingProfile{
		UserID:          "u1",
		Age:             32,
		Sex:             "female",
		RestingHR:       48,
		MaxHR:           188,
		FitnessLevel:    model.FitnessIntermediate,
		PreferredSports: []string{"running"},
	}
}

func testPlan(t *testing.T, fatigue ...float64) model.Plan {
	t.Helper()
	var ws []model.PlannedWorkout
	for i, f := range fatigue {
		w := model.PlannedWorkout{
			Date:            model.AddDays(today, i),
			WorkoutType:     "endurance",
			Description:     "Steady run",
			ExpectedFatigue: f,
			DurationMin:     f,
		}
		if f == 0 {
			w = model.RestDay(model.AddDays(today, i), "Rest")
		}
		ws = append(ws, w)
	}
	p, err := model.NewPlan("p1", "u1", ws)
	require.NoError(t, err)
	return p
}

func TestEngineRequiresUserID(t *testing.T) {
	e := newTestEngine()

	res := e.CalculateTSB("", nil, today)
	require.False(t, res.Success)
	require.Nil(t, res.Data)
	require.Equal(t, "user id is required", res.Error)
	require.NotEmpty(t, res.Context.RequestID)
	require.Equal(t, EngineVersion, res.Context.Version)
}

func TestCalculateTSBEnvelope(t *testing.T) {
	e := newTestEngine()

	res := e.CalculateTSB("u1", dailyActivities(today, 42, 50), today)
	require.True(t, res.Success)
	require.NotNil(t, res.Data)
	require.Empty(t, res.Error)
	require.Contains(t, res.Context.Algorithms, algoEWMA)
	require.Equal(t, "u1", res.Context.UserID)
	require.Equal(t, fixedNow(), res.Context.Timestamp)
	require.InDelta(t, 0, res.Data.TSB, 0.5)

	empty := e.CalculateTSB("u1", nil, today)
	require.True(t, empty.Success)
	require.NotEmpty(t, empty.Warnings)
}

func TestEngineRejectsInvalidSamples(t *testing.T) {
	e := newTestEngine()

	bad := []model.ActivitySample{{ID: "x", Date: today, TrainingLoad: -5}}
	res := e.CalculateTSB("u1", bad, today)
	require.False(t, res.Success)
	require.Contains(t, res.Error, "negative training load")

	rec := e.AnalyzeIndicators("u1", []model.RecoveryMetricsSample{{Date: today, SubjectiveFatigue: 0}}, 0)
	require.False(t, rec.Success)
	require.Equal(t, analysis.DefaultIndicatorWindow, rec.Context.Parameters["windowDays"])
}

func TestAssessReadinessRequiresProfile(t *testing.T) {
	e := newTestEngine()

	res := e.AssessReadiness("u1", nil, nil, nil, today)
	require.False(t, res.Success)
	require.Contains(t, res.Error, "profile is required")

	ok := e.AssessReadiness("u1", dailyActivities(today, 10, 40), nil, testProfile(), today)
	require.True(t, ok.Success)
	require.Equal(t, today, ok.Data.Date)
}

func TestQuickFatigueCheckWarnings(t *testing.T) {
	e := newTestEngine()

	res := e.QuickFatigueCheck("u1", nil, nil, today)
	require.True(t, res.Success)
	require.Len(t, res.Warnings, 2)
	require.True(t, res.Data.CanTrain)
}

func TestCheckOvertrainingMarkersNotEnoughHistory(t *testing.T) {
	e := newTestEngine()

	res := e.CheckOvertrainingMarkers("u1", dailyActivities(today, 3, 40), nil, today)
	require.True(t, res.Success)
	require.False(t, res.Data.Evaluated)
	require.NotEmpty(t, res.Warnings)
}

func TestRecommendWorkout(t *testing.T) {
	e := newTestEngine()

	res := e.RecommendWorkout(recommend.Request{
		UserID:      "u1",
		CurrentDate: today,
		Profile:     testProfile(),
		Activities:  dailyActivities(today, 20, 40),
	})
	require.True(t, res.Success, res.Error)
	require.Equal(t, model.AddDays(today, 1), res.Data.Date)
	require.NotEmpty(t, res.Data.RecommendedWorkout.TemplateID)
	require.Contains(t, strings.Join(res.Warnings, "\n"), "no recovery data")
}

func TestRecommendWorkoutHistoryTooOld(t *testing.T) {
	e := newTestEngine()

	old := dailyActivities(model.AddDays(today, -61), 1, 40)
	res := e.RecommendWorkout(recommend.Request{UserID: "u1", CurrentDate: today, Profile: testProfile(), Activities: old})
	require.False(t, res.Success)
	require.Contains(t, res.Error, "older than 60 days")

	missing := e.RecommendWorkout(recommend.Request{UserID: "u1", CurrentDate: today})
	require.False(t, missing.Success)
	require.Contains(t, missing.Error, "profile is required")
}

func TestModifyWorkout(t *testing.T) {
	e := newTestEngine()
	p := testPlan(t, 40, 60, 50, 80, 0, 45, 30)

	res := e.ModifyWorkout(p, model.AddDays(today, 1), string(plan.ChangeToRest), plan.DefaultOptions())
	require.True(t, res.Success, res.Error)
	require.False(t, res.NotFound)
	require.NotNil(t, res.AdjustedPlan)
	require.True(t, res.AdjustedPlan.Workouts[1].IsRest())
	require.NotEmpty(t, res.Modifications)
	require.Equal(t, 60.0, p.Workouts[1].ExpectedFatigue, "input plan must not change")
}

func TestModifyWorkoutNotFound(t *testing.T) {
	e := newTestEngine()
	p := testPlan(t, 40, 60)

	res := e.ModifyWorkout(p, model.AddDays(today, 9), string(plan.ChangeToRest), plan.DefaultOptions())
	require.False(t, res.Success)
	require.True(t, res.NotFound)
	require.Equal(t, "No workout planned on 2024-06-19", res.Error)

	unknown := e.ModifyWorkout(p, today, "teleport", plan.DefaultOptions())
	require.False(t, unknown.Success)
	require.False(t, unknown.NotFound)
	require.Contains(t, unknown.Error, "unknown modification action")
}

func TestAdjustPlanEnvelope(t *testing.T) {
	e := newTestEngine()
	p := testPlan(t, 50, 60, 70, 0, 60, 40, 80, 50)

	env := e.AdjustPlan(plan.AdjustRequest{
		Plan:          p,
		Reason:        plan.ReasonIllness,
		AffectedDates: []time.Time{today, model.AddDays(today, 1)},
	})
	require.True(t, env.Success, env.Error)
	require.Equal(t, 80.0, env.Confidence)
	require.Len(t, env.Alternatives, 2)
	require.Equal(t, "illness", env.Context.Parameters["reason"])

	missing := e.AdjustPlan(plan.AdjustRequest{Plan: p, Reason: plan.ReasonIllness, AffectedDates: []time.Time{model.AddDays(today, 30)}})
	require.False(t, missing.Success)
	require.True(t, missing.NotFound)
}

func TestRunRecoversPanic(t *testing.T) {
	e := newTestEngine()

	res := run(e, call{op: "boom", userID: "u1"}, func() (int, []string, error) {
		var m map[string]int
		m["x"] = 1
		return 0, nil, nil
	})
	require.False(t, res.Success)
	require.Nil(t, res.Data)
	require.Contains(t, res.Error, "internal error")
}

func TestRecommendWorkoutConcurrently(t *testing.T) {
	e := newTestEngine()
	req := recommend.Request{
		UserID:      "u1",
		CurrentDate: today,
		Profile:     testProfile(),
		Activities:  dailyActivities(today, 28, 50),
	}

	var wg sync.WaitGroup
	failures := make(chan string, 8*50)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if res := e.RecommendWorkout(req); !res.Success {
					failures <- res.Error
				}
			}
		}()
	}
	wg.Wait()
	close(failures)
	for msg := range failures {
		t.Errorf("recommend failed: %s", msg)
	}
}
