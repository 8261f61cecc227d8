package plan

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

var (
	// ErrDateNotFound is returned when the plan has no entry on the requested date
	ErrDateNotFound = errors.New("no planned workout on date")
	// ErrUnknownAction is returned for an unsupported modification action
	ErrUnknownAction = errors.New("unknown modification action")
	// ErrInvalidOptions is returned when an action is missing its parameters
	ErrInvalidOptions = errors.New("invalid modification options")
)

// Modification actions recorded in the audit trail
const (
	ActionMoved     = "moved"
	ActionModified  = "modified"
	ActionCancelled = "cancelled"
	ActionAdded     = "added"
)

const (
	warnLoadDelta   = 50.0
	warnVolumeDelta = 60.0
	warnDaysChanged = 3
	maxFatigue      = 100.0
)

// Modification is one audited change to a plan entry
type Modification struct {
	Date      time.Time             `json:"date"`
	Action    string                `json:"action"`
	Original  *model.PlannedWorkout `json:"original,omitempty"`
	Updated   *model.PlannedWorkout `json:"updated,omitempty"`
	Reason    string                `json:"reason"`
	Timestamp time.Time             `json:"timestamp"`
}

// ImpactSummary compares an adjusted plan with the original
type ImpactSummary struct {
	DaysAffected    int     `json:"daysAffected"`
	LoadChange      float64 `json:"loadChange"`
	VolumeChangeMin float64 `json:"volumeChangeMin"`
}

// Impact diffs two versions of a plan. A day counts as affected when it was
// added, removed or changed in fatigue, duration or type.
func Impact(before, after model.Plan) ImpactSummary {
	changed := make(map[string]bool)
	prev := make(map[string]model.PlannedWorkout, len(before.Workouts))
	for _, w := range before.Workouts {
		prev[model.DayKey(w.Date)] = w
	}
	for _, w := range after.Workouts {
		key := model.DayKey(w.Date)
		old, ok := prev[key]
		if !ok || old.ExpectedFatigue != w.ExpectedFatigue || old.DurationMin != w.DurationMin || old.WorkoutType != w.WorkoutType {
			changed[key] = true
		}
		delete(prev, key)
	}
	for key := range prev {
		changed[key] = true
	}

	return ImpactSummary{
		DaysAffected:    len(changed),
		LoadChange:      round1(after.TotalFatigue() - before.TotalFatigue()),
		VolumeChangeMin: round1(after.TotalDuration() - before.TotalDuration()),
	}
}

// impactWarnings flags large changes for review
func impactWarnings(s ImpactSummary) []string {
	var warnings []string
	if math.Abs(s.LoadChange) > warnLoadDelta {
		warnings = append(warnings, fmt.Sprintf("Large training load change (%+.0f fatigue points)", s.LoadChange))
	}
	if math.Abs(s.VolumeChangeMin) > warnVolumeDelta {
		warnings = append(warnings, fmt.Sprintf("Large volume change (%+.0f minutes)", s.VolumeChangeMin))
	}
	if s.DaysAffected > warnDaysChanged {
		warnings = append(warnings, fmt.Sprintf("%d days changed; review the rest of the week", s.DaysAffected))
	}
	return warnings
}

// intensityLabel buckets a fatigue score
func intensityLabel(fatigue float64) string {
	switch {
	case fatigue <= 40:
		return "easy"
	case fatigue <= 65:
		return "moderate"
	case fatigue <= 85:
		return "hard"
	default:
		return "extreme"
	}
}

func snapshot(w model.PlannedWorkout) *model.PlannedWorkout {
	c := w
	c.Tags = append([]string(nil), w.Tags...)
	return &c
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
