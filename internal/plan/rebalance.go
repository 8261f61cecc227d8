package plan

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/workouts"
)

// Action is a single-day plan modification
type Action string

const (
	ChangeToRest      Action = "change-to-rest"
	ChangeWorkoutType Action = "change-workout-type"
	AdjustDuration    Action = "adjust-duration"
	AdjustIntensity   Action = "adjust-intensity"
)

// ParseAction validates an action name
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ChangeToRest, ChangeWorkoutType, AdjustDuration, AdjustIntensity:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

const (
	// DefaultMaxDailyIncrease is the default per-day fatigue increase cap
	DefaultMaxDailyIncrease = 15.0
	// AbsoluteFatigueCap bounds any day that receives redistributed load
	AbsoluteFatigueCap = 85.0

	redistributeThreshold = -5.0
	hardDayFatigue        = 70.0
	durationPerFatigue    = 0.5
	fallbackFatigueCap    = 60.0
	bigDropRecommend      = -30.0
	bigRiseRecommend      = 30.0
)

// Options tune ModifyWorkout
type Options struct {
	Redistribute            bool     `json:"redistribute" yaml:"redistribute"`
	PreserveHardDays        bool     `json:"preserveHardDays" yaml:"preserveHardDays"`
	MaxDailyFatigueIncrease float64  `json:"maxDailyFatigueIncrease" yaml:"maxDailyFatigueIncrease"`
	NewWorkoutType          string   `json:"newWorkoutType,omitempty" yaml:"-"`
	NewDurationMin          float64  `json:"newDurationMin,omitempty" yaml:"-"`
	NewFatigue              *float64 `json:"newFatigue,omitempty" yaml:"-"`
	Reason                  string   `json:"reason,omitempty" yaml:"-"`
}

// DefaultOptions redistributes lost load, protects hard days and caps the
// per-day increase at 15.
func DefaultOptions() Options {
	return Options{
		Redistribute:            true,
		PreserveHardDays:        true,
		MaxDailyFatigueIncrease: DefaultMaxDailyIncrease,
	}
}

// ChangeResult is the outcome of a single-day modification
type ChangeResult struct {
	AdjustedPlan    model.Plan     `json:"adjustedPlan"`
	Modifications   []Modification `json:"modifications"`
	Impact          ImpactSummary  `json:"impactSummary"`
	LoadDelta       float64        `json:"loadDelta"`
	Redistributed   float64        `json:"redistributed"`
	Unabsorbed      float64        `json:"unabsorbed"`
	Warnings        []string       `json:"warnings"`
	Recommendations []string       `json:"recommendations"`
}

// Rebalancer applies single-day changes and spreads lost load forward
type Rebalancer struct {
	lib workouts.Library
	now func() time.Time
}

// NewRebalancer creates a rebalancer. lib may be nil, in which case type
// changes always use the generic fallback.
func NewRebalancer(lib workouts.Library, now func() time.Time) *Rebalancer {
	if now == nil {
		now = time.Now
	}
	return &Rebalancer{lib: lib, now: now}
}

// ModifyWorkout changes the entry on date and, when asked, redistributes
// lost load over the days strictly after it. The input plan is not mutated.
func (r *Rebalancer) ModifyWorkout(p model.Plan, date time.Time, action Action, opts Options) (ChangeResult, error) {
	idx := p.IndexOf(date)
	if idx < 0 {
		return ChangeResult{}, fmt.Errorf("%w: %s", ErrDateNotFound, model.DayKey(date))
	}
	if opts.MaxDailyFatigueIncrease <= 0 {
		opts.MaxDailyFatigueIncrease = DefaultMaxDailyIncrease
	}

	adjusted := p.Clone()
	original := adjusted.Workouts[idx]

	updated, reason, err := r.apply(original, action, opts)
	if err != nil {
		return ChangeResult{}, err
	}
	adjusted.Workouts[idx] = updated

	stamp := r.now()
	if opts.Reason != "" {
		reason = opts.Reason
	}
	res := ChangeResult{
		LoadDelta: updated.ExpectedFatigue - original.ExpectedFatigue,
		Modifications: []Modification{{
			Date:      updated.Date,
			Action:    string(action),
			Original:  snapshot(original),
			Updated:   snapshot(updated),
			Reason:    reason,
			Timestamp: stamp,
		}},
	}

	if opts.Redistribute && res.LoadDelta < redistributeThreshold {
		mods, absorbed := redistribute(&adjusted, idx, -res.LoadDelta, opts, stamp)
		res.Modifications = append(res.Modifications, mods...)
		res.Redistributed = round1(absorbed)
		res.Unabsorbed = round1(-res.LoadDelta - absorbed)
	}

	res.AdjustedPlan = adjusted
	res.Impact = Impact(p, adjusted)
	res.Warnings = impactWarnings(res.Impact)
	res.Recommendations = changeRecommendations(res)
	return res, nil
}

func (r *Rebalancer) apply(w model.PlannedWorkout, action Action, opts Options) (model.PlannedWorkout, string, error) {
	switch action {
	case ChangeToRest:
		rest := model.RestDay(w.Date, "Rest day")
		if w.Description != "" {
			rest.Description = "Rest day (was: " + w.Description + ")"
		}
		return rest, "Changed to rest", nil

	case ChangeWorkoutType:
		if opts.NewWorkoutType == "" {
			return w, "", fmt.Errorf("%w: new workout type is required", ErrInvalidOptions)
		}
		return r.replaceType(w, opts.NewWorkoutType), fmt.Sprintf("Changed from %s to %s", w.WorkoutType, opts.NewWorkoutType), nil

	case AdjustDuration:
		if opts.NewDurationMin <= 0 {
			return w, "", fmt.Errorf("%w: new duration must be positive", ErrInvalidOptions)
		}
		if w.DurationMin <= 0 {
			return w, "", fmt.Errorf("%w: entry has no duration to scale", ErrInvalidOptions)
		}
		from := w.DurationMin
		w.ExpectedFatigue = math.Min(maxFatigue, math.Round(w.ExpectedFatigue*math.Sqrt(opts.NewDurationMin/from)))
		w.DurationMin = opts.NewDurationMin
		w.Intensity = intensityLabel(w.ExpectedFatigue)
		return w, fmt.Sprintf("Duration changed from %.0f to %.0f min", from, opts.NewDurationMin), nil

	case AdjustIntensity:
		if opts.NewFatigue != nil {
			if *opts.NewFatigue < 0 || *opts.NewFatigue > maxFatigue {
				return w, "", fmt.Errorf("%w: fatigue must be within 0-100", ErrInvalidOptions)
			}
			w.ExpectedFatigue = *opts.NewFatigue
		}
		w.Intensity = intensityLabel(w.ExpectedFatigue)
		return w, fmt.Sprintf("Intensity set to %s", w.Intensity), nil
	}
	return w, "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// replaceType picks the library entry of the new type nearest in fatigue,
// else a generic session capped at fatigue 60.
func (r *Rebalancer) replaceType(w model.PlannedWorkout, newType string) model.PlannedWorkout {
	var best *workouts.Template
	if r.lib != nil {
		options := r.lib.GetWorkoutsByType(newType)
		gap := math.Inf(1)
		for i := range options {
			if d := math.Abs(options[i].FatigueScore - w.ExpectedFatigue); d < gap {
				best, gap = &options[i], d
			}
		}
	}
	if best != nil {
		out := workouts.ToPlanned(*best, w)
		out.Intensity = intensityLabel(out.ExpectedFatigue)
		return out
	}

	w.WorkoutType = newType
	w.Description = fmt.Sprintf("Generic %s session", strings.ReplaceAll(newType, "-", " "))
	w.ExpectedFatigue = math.Min(w.ExpectedFatigue, fallbackFatigueCap)
	w.Intensity = intensityLabel(w.ExpectedFatigue)
	return w
}

// redistribute spreads lost load evenly over eligible days after idx.
// It returns the audit entries and the load actually absorbed.
func redistribute(p *model.Plan, idx int, lost float64, opts Options, stamp time.Time) ([]Modification, float64) {
	var eligible []int
	for i := idx + 1; i < len(p.Workouts); i++ {
		w := p.Workouts[i]
		if w.IsRest() {
			continue
		}
		if opts.PreserveHardDays && w.ExpectedFatigue > hardDayFatigue {
			continue
		}
		eligible = append(eligible, i)
	}
	if len(eligible) == 0 {
		return nil, 0
	}

	share := lost / float64(len(eligible))
	var mods []Modification
	var absorbed float64
	for _, i := range eligible {
		w := p.Workouts[i]
		inc := math.Min(share, opts.MaxDailyFatigueIncrease)
		inc = math.Min(inc, AbsoluteFatigueCap-w.ExpectedFatigue)
		if inc <= 0 {
			continue
		}
		before := w
		w.ExpectedFatigue += inc
		w.DurationMin += inc * durationPerFatigue
		w.Intensity = intensityLabel(w.ExpectedFatigue)
		p.Workouts[i] = w
		absorbed += inc
		mods = append(mods, Modification{
			Date:      w.Date,
			Action:    ActionModified,
			Original:  snapshot(before),
			Updated:   snapshot(w),
			Reason:    fmt.Sprintf("Absorbed %.1f fatigue points of redistributed load", inc),
			Timestamp: stamp,
		})
	}
	return mods, absorbed
}

func changeRecommendations(res ChangeResult) []string {
	var recs []string
	if res.Impact.LoadChange < bigDropRecommend {
		recs = append(recs, "Training load dropped noticeably; consider adding an extra easy session this week")
	}
	if res.Unabsorbed > 0 {
		recs = append(recs, fmt.Sprintf("%.0f fatigue points could not be redistributed without exceeding daily limits", res.Unabsorbed))
	}
	if res.Impact.LoadChange > bigRiseRecommend {
		recs = append(recs, "Training load increased; monitor fatigue and sleep over the next few days")
	}
	return recs
}
