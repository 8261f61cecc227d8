package plan

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/workouts"
)

var start = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return start.AddDate(0, 0, n)
}

// buildPlan creates one entry per fatigue value on consecutive days.
// A zero fatigue becomes a rest day.
func buildPlan(t *testing.T, fatigues ...float64) model.Plan {
	t.Helper()
	var ws []model.PlannedWorkout
	for i, f := range fatigues {
		if f == 0 {
			ws = append(ws, model.RestDay(day(i), "Rest"))
			continue
		}
		ws = append(ws, model.PlannedWorkout{
			Date:            day(i),
			WorkoutType:     "endurance",
			Description:     "Steady session",
			ExpectedFatigue: f,
			DurationMin:     f,
			Sport:           "run",
		})
	}
	p, err := model.NewPlan("p1", "u1", ws)
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	return p
}

func fixedNow() time.Time { return start }

func TestModifyWorkout_ChangeToRestRedistributes(t *testing.T) {
	p := buildPlan(t, 40, 60, 50, 80, 0, 45, 30)
	r := NewRebalancer(workouts.DefaultLibrary(), fixedNow)

	res, err := r.ModifyWorkout(p, day(1), ChangeToRest, DefaultOptions())
	if err != nil {
		t.Fatalf("ModifyWorkout() error = %v", err)
	}

	got := res.AdjustedPlan.Workouts
	if got[1].ExpectedFatigue != 0 || got[1].DurationMin != 0 {
		t.Errorf("modified day = %v/%v, want 0/0", got[1].ExpectedFatigue, got[1].DurationMin)
	}
	if res.LoadDelta != -60 {
		t.Errorf("LoadDelta = %v, want -60", res.LoadDelta)
	}

	var added float64
	for i := 2; i < len(got); i++ {
		inc := got[i].ExpectedFatigue - p.Workouts[i].ExpectedFatigue
		if inc > DefaultMaxDailyIncrease {
			t.Errorf("day %d increased by %v, want at most %v", i, inc, DefaultMaxDailyIncrease)
		}
		added += inc
	}
	if added > 60 {
		t.Errorf("total redistributed = %v, want at most 60", added)
	}

	// Three eligible days absorb 15 each; the hard day and the rest day are skipped
	want := []float64{40, 0, 65, 80, 0, 60, 45}
	for i, w := range want {
		if got[i].ExpectedFatigue != w {
			t.Errorf("day %d fatigue = %v, want %v", i, got[i].ExpectedFatigue, w)
		}
	}
	if got[2].DurationMin != 57.5 {
		t.Errorf("day 2 duration = %v, want 57.5", got[2].DurationMin)
	}
	if res.Unabsorbed != 15 {
		t.Errorf("Unabsorbed = %v, want 15", res.Unabsorbed)
	}
	if res.Impact.DaysAffected != 4 {
		t.Errorf("DaysAffected = %d, want 4", res.Impact.DaysAffected)
	}
	if res.Impact.LoadChange != -15 {
		t.Errorf("LoadChange = %v, want -15", res.Impact.LoadChange)
	}
	if len(res.Recommendations) == 0 {
		t.Error("expected a recommendation about unabsorbed load")
	}

	if p.Workouts[1].ExpectedFatigue != 60 {
		t.Error("input plan was mutated")
	}
}

func TestModifyWorkout_NoRedistribution(t *testing.T) {
	p := buildPlan(t, 60, 40, 40)
	r := NewRebalancer(nil, fixedNow)

	opts := DefaultOptions()
	opts.Redistribute = false
	res, err := r.ModifyWorkout(p, day(0), ChangeToRest, opts)
	if err != nil {
		t.Fatalf("ModifyWorkout() error = %v", err)
	}
	if res.AdjustedPlan.Workouts[1].ExpectedFatigue != 40 {
		t.Errorf("later day changed without redistribution")
	}
	if len(res.Modifications) != 1 {
		t.Errorf("got %d modifications, want 1", len(res.Modifications))
	}
}

func TestModifyWorkout_AdjustDuration(t *testing.T) {
	p := buildPlan(t, 64)
	p.Workouts[0].DurationMin = 60
	r := NewRebalancer(nil, fixedNow)

	opts := DefaultOptions()
	opts.NewDurationMin = 30
	res, err := r.ModifyWorkout(p, day(0), AdjustDuration, opts)
	if err != nil {
		t.Fatalf("ModifyWorkout() error = %v", err)
	}
	w := res.AdjustedPlan.Workouts[0]
	// 64 * sqrt(0.5) = 45.25
	if w.ExpectedFatigue != 45 || w.DurationMin != 30 {
		t.Errorf("adjusted = %v/%v, want 45/30", w.ExpectedFatigue, w.DurationMin)
	}
	if w.Intensity != "moderate" {
		t.Errorf("Intensity = %q, want moderate", w.Intensity)
	}
}

func TestModifyWorkout_AdjustIntensity(t *testing.T) {
	tests := []struct {
		fatigue float64
		want    string
	}{
		{40, "easy"}, {41, "moderate"}, {65, "moderate"}, {85, "hard"}, {86, "extreme"},
	}
	r := NewRebalancer(nil, fixedNow)
	for _, tt := range tests {
		p := buildPlan(t, 50)
		opts := Options{NewFatigue: &tt.fatigue}
		res, err := r.ModifyWorkout(p, day(0), AdjustIntensity, opts)
		if err != nil {
			t.Fatalf("ModifyWorkout() error = %v", err)
		}
		if got := res.AdjustedPlan.Workouts[0].Intensity; got != tt.want {
			t.Errorf("fatigue %v: Intensity = %q, want %q", tt.fatigue, got, tt.want)
		}
	}
}

func TestModifyWorkout_ChangeWorkoutType(t *testing.T) {
	p := buildPlan(t, 60)

	withLib := NewRebalancer(workouts.DefaultLibrary(), fixedNow)
	opts := DefaultOptions()
	opts.Redistribute = false
	opts.NewWorkoutType = workouts.TypeEasy
	res, err := withLib.ModifyWorkout(p, day(0), ChangeWorkoutType, opts)
	if err != nil {
		t.Fatalf("ModifyWorkout() error = %v", err)
	}
	if w := res.AdjustedPlan.Workouts[0]; w.WorkoutType != workouts.TypeEasy || w.ExpectedFatigue != 30 {
		t.Errorf("replacement = %s/%v, want easy/30", w.WorkoutType, w.ExpectedFatigue)
	}

	hard := buildPlan(t, 80)
	opts.NewWorkoutType = "fartlek"
	res, err = NewRebalancer(nil, fixedNow).ModifyWorkout(hard, day(0), ChangeWorkoutType, opts)
	if err != nil {
		t.Fatalf("ModifyWorkout() error = %v", err)
	}
	if w := res.AdjustedPlan.Workouts[0]; w.WorkoutType != "fartlek" || w.ExpectedFatigue != 60 {
		t.Errorf("fallback = %s/%v, want fartlek/60", w.WorkoutType, w.ExpectedFatigue)
	}
}

func TestModifyWorkout_Errors(t *testing.T) {
	p := buildPlan(t, 50, 50)
	r := NewRebalancer(nil, fixedNow)

	if _, err := r.ModifyWorkout(p, day(10), ChangeToRest, DefaultOptions()); !errors.Is(err, ErrDateNotFound) {
		t.Errorf("missing date error = %v, want ErrDateNotFound", err)
	}
	if _, err := r.ModifyWorkout(p, day(0), Action("explode"), DefaultOptions()); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown action error = %v, want ErrUnknownAction", err)
	}
	if _, err := r.ModifyWorkout(p, day(0), AdjustDuration, DefaultOptions()); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("missing duration error = %v, want ErrInvalidOptions", err)
	}
	if _, err := ParseAction("change-to-rest"); err != nil {
		t.Errorf("ParseAction() error = %v", err)
	}
}

func TestModifyWorkout_Invariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	r := NewRebalancer(workouts.DefaultLibrary(), fixedNow)
	actions := []Action{ChangeToRest, AdjustDuration, AdjustIntensity, ChangeWorkoutType}

	for iter := 0; iter < 200; iter++ {
		n := 3 + rng.IntN(10)
		fatigues := make([]float64, n)
		for i := range fatigues {
			if rng.IntN(5) > 0 {
				fatigues[i] = float64(5 + rng.IntN(90))
			}
		}
		fatigues[0] = 50
		p := buildPlan(t, fatigues...)
		idx := rng.IntN(n)
		if p.Workouts[idx].IsRest() {
			continue
		}

		opts := DefaultOptions()
		opts.PreserveHardDays = rng.IntN(2) == 0
		opts.MaxDailyFatigueIncrease = float64(5 + rng.IntN(20))
		opts.NewDurationMin = float64(10 + rng.IntN(60))
		nf := float64(rng.IntN(101))
		opts.NewFatigue = &nf
		opts.NewWorkoutType = workouts.TypeEasy
		action := actions[rng.IntN(len(actions))]

		before := p.Clone()
		res, err := r.ModifyWorkout(p, day(idx), action, opts)
		if err != nil {
			t.Fatalf("iter %d: ModifyWorkout(%s) error = %v", iter, action, err)
		}

		for i := 0; i < idx; i++ {
			if res.AdjustedPlan.Workouts[i].ExpectedFatigue != before.Workouts[i].ExpectedFatigue ||
				res.AdjustedPlan.Workouts[i].DurationMin != before.Workouts[i].DurationMin {
				t.Fatalf("iter %d: entry %d before trigger %d was edited", iter, i, idx)
			}
		}
		for i := idx + 1; i < n; i++ {
			old := before.Workouts[i].ExpectedFatigue
			got := res.AdjustedPlan.Workouts[i].ExpectedFatigue
			if got == old {
				continue
			}
			if got-old > opts.MaxDailyFatigueIncrease+1e-9 {
				t.Fatalf("iter %d: day %d increased by %v over cap %v", iter, i, got-old, opts.MaxDailyFatigueIncrease)
			}
			if got > AbsoluteFatigueCap+1e-9 {
				t.Fatalf("iter %d: day %d fatigue %v above %v", iter, i, got, AbsoluteFatigueCap)
			}
		}
		if math.Abs(p.TotalFatigue()-before.TotalFatigue()) > 0 {
			t.Fatalf("iter %d: input plan mutated", iter)
		}
	}
}
