package model

import (
	"errors"
	"testing"
	"time"
)

func TestDaysBetween(t *testing.T) {
	base := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day different hours", base, base.Add(3 * time.Hour), 0},
		{"one day later", base, base.AddDate(0, 0, 1), 1},
		{"one day earlier", base, base.AddDate(0, 0, -1), -1},
		{"across month", base, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("DaysBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewPlanSortsAndRejectsDuplicates(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	p, err := NewPlan("p1", "u1", []PlannedWorkout{
		{Date: d.AddDate(0, 0, 2), WorkoutType: "easy", ExpectedFatigue: 30},
		{Date: d, WorkoutType: "tempo", ExpectedFatigue: 60},
	})
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	if !p.Workouts[0].Date.Equal(d) {
		t.Errorf("first workout date = %v, want %v", p.Workouts[0].Date, d)
	}

	_, err = NewPlan("p2", "u1", []PlannedWorkout{
		{Date: d, WorkoutType: "easy"},
		{Date: d.Add(5 * time.Hour), WorkoutType: "tempo"},
	})
	if !errors.Is(err, ErrDuplicateDate) {
		t.Errorf("NewPlan() error = %v, want ErrDuplicateDate", err)
	}
}

func TestPlanInsertKeepsOrder(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p, _ := NewPlan("p", "u", []PlannedWorkout{
		{Date: d, WorkoutType: "easy"},
		{Date: d.AddDate(0, 0, 4), WorkoutType: "long"},
	})

	if err := p.Insert(PlannedWorkout{Date: d.AddDate(0, 0, 2), WorkoutType: "tempo"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if p.Workouts[1].WorkoutType != "tempo" {
		t.Errorf("Workouts[1] = %q, want tempo", p.Workouts[1].WorkoutType)
	}
	if err := p.Insert(PlannedWorkout{Date: d, WorkoutType: "again"}); !errors.Is(err, ErrDuplicateDate) {
		t.Errorf("Insert() on taken date error = %v, want ErrDuplicateDate", err)
	}
}

func TestPlanCloneIsDeep(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p, _ := NewPlan("p", "u", []PlannedWorkout{{Date: d, WorkoutType: "easy", Tags: []string{"aerobic"}}})

	c := p.Clone()
	c.Workouts[0].ExpectedFatigue = 99
	c.Workouts[0].Tags[0] = "changed"

	if p.Workouts[0].ExpectedFatigue != 0 || p.Workouts[0].Tags[0] != "aerobic" {
		t.Error("mutating the clone changed the original plan")
	}
}

func TestRecoveryValidate(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	valid := RecoveryMetricsSample{Date: d, SubjectiveFatigue: 5, SleepScore: Float(80)}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	bad := []RecoveryMetricsSample{
		{SubjectiveFatigue: 5},
		{Date: d, SubjectiveFatigue: 0},
		{Date: d, SubjectiveFatigue: 11},
		{Date: d, SubjectiveFatigue: 5, BodyBattery: Float(120)},
		{Date: d, SubjectiveFatigue: 5, HRV: Float(-3)},
	}
	for i, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSample) {
			t.Errorf("case %d: Validate() error = %v, want ErrInvalidSample", i, err)
		}
	}
}
