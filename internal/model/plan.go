package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrDuplicateDate is returned when a plan would hold two entries for one day
var ErrDuplicateDate = errors.New("plan already has a workout on this date")

// WorkoutRest is the workout type of a rest day
const WorkoutRest = "rest"

// PlannedWorkout is one entry of a training plan. Date is the unique key within a plan.
type PlannedWorkout struct {
	Date            time.Time `json:"date" yaml:"date"`
	WorkoutType     string    `json:"workoutType" yaml:"workoutType"`
	Description     string    `json:"description" yaml:"description"`
	ExpectedFatigue float64   `json:"expectedFatigue" yaml:"expectedFatigue"` // 0-100
	DurationMin     float64   `json:"durationMin" yaml:"durationMin"`
	Sport           string    `json:"sport,omitempty" yaml:"sport,omitempty"`
	Tags            []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	ZoneTarget      string    `json:"zoneTarget,omitempty" yaml:"zoneTarget,omitempty"`
	Intensity       string    `json:"intensity,omitempty" yaml:"intensity,omitempty"` // easy, moderate, hard, extreme
}

// IsRest reports whether the entry carries no training stimulus
func (w PlannedWorkout) IsRest() bool {
	return w.WorkoutType == WorkoutRest || (w.ExpectedFatigue == 0 && w.DurationMin == 0)
}

// Plan is an ordered-by-date collection of workouts with unique dates
type Plan struct {
	ID       string           `json:"id" yaml:"id"`
	UserID   string           `json:"userId" yaml:"userId"`
	Workouts []PlannedWorkout `json:"workouts" yaml:"workouts"`
}

// NewPlan sorts the workouts by date and rejects duplicate dates.
// The input slice is copied.
func NewPlan(id, userID string, workouts []PlannedWorkout) (Plan, error) {
	p := Plan{ID: id, UserID: userID, Workouts: cloneWorkouts(workouts)}
	for i := range p.Workouts {
		p.Workouts[i].Date = Day(p.Workouts[i].Date)
	}
	sort.SliceStable(p.Workouts, func(i, j int) bool {
		return p.Workouts[i].Date.Before(p.Workouts[j].Date)
	})
	for i := 1; i < len(p.Workouts); i++ {
		if p.Workouts[i].Date.Equal(p.Workouts[i-1].Date) {
			return Plan{}, fmt.Errorf("%w: %s", ErrDuplicateDate, DayKey(p.Workouts[i].Date))
		}
	}
	return p, nil
}

// Clone returns a deep copy of the plan
func (p Plan) Clone() Plan {
	return Plan{ID: p.ID, UserID: p.UserID, Workouts: cloneWorkouts(p.Workouts)}
}

// IndexOf returns the index of the entry on date, or -1
func (p Plan) IndexOf(date time.Time) int {
	key := DayKey(date)
	for i, w := range p.Workouts {
		if DayKey(w.Date) == key {
			return i
		}
	}
	return -1
}

// TotalFatigue sums expected fatigue over the whole plan
func (p Plan) TotalFatigue() float64 {
	var total float64
	for _, w := range p.Workouts {
		total += w.ExpectedFatigue
	}
	return total
}

// TotalDuration sums planned minutes over the whole plan
func (p Plan) TotalDuration() float64 {
	var total float64
	for _, w := range p.Workouts {
		total += w.DurationMin
	}
	return total
}

// Insert adds w keeping date order. It fails if the date is taken.
func (p *Plan) Insert(w PlannedWorkout) error {
	w.Date = Day(w.Date)
	if p.IndexOf(w.Date) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateDate, DayKey(w.Date))
	}
	i := sort.Search(len(p.Workouts), func(i int) bool {
		return p.Workouts[i].Date.After(w.Date)
	})
	p.Workouts = append(p.Workouts, PlannedWorkout{})
	copy(p.Workouts[i+1:], p.Workouts[i:])
	p.Workouts[i] = w
	return nil
}

// Remove deletes the entry on date, reporting whether one existed
func (p *Plan) Remove(date time.Time) bool {
	i := p.IndexOf(date)
	if i < 0 {
		return false
	}
	p.Workouts = append(p.Workouts[:i], p.Workouts[i+1:]...)
	return true
}

// RestDay builds a zero-load entry for date
func RestDay(date time.Time, description string) PlannedWorkout {
	return PlannedWorkout{
		Date:        Day(date),
		WorkoutType: WorkoutRest,
		Description: description,
		Intensity:   "easy",
	}
}

func cloneWorkouts(in []PlannedWorkout) []PlannedWorkout {
	if in == nil {
		return nil
	}
	out := make([]PlannedWorkout, len(in))
	for i, w := range in {
		out[i] = w
		if w.Tags != nil {
			out[i].Tags = append([]string(nil), w.Tags...)
		}
	}
	return out
}
