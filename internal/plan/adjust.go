package plan

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/workouts"
)

// Reason is why a plan needs adjusting
type Reason string

const (
	ReasonMissedWorkout  Reason = "missed-workout"
	ReasonIllness        Reason = "illness"
	ReasonInjury         Reason = "injury"
	ReasonScheduleChange Reason = "schedule-change"
	ReasonPlateau        Reason = "performance-plateau"
	ReasonOverreaching   Reason = "overreaching"
	ReasonOther          Reason = "other"
)

// ErrInvalidRequest is returned for adjustment requests missing required data
var ErrInvalidRequest = errors.New("invalid adjustment request")

// ParseReason maps a reason string, treating unknown values as other
func ParseReason(s string) Reason {
	switch r := Reason(s); r {
	case ReasonMissedWorkout, ReasonIllness, ReasonInjury, ReasonScheduleChange,
		ReasonPlateau, ReasonOverreaching, ReasonOther:
		return r
	}
	return ReasonOther
}

const (
	moveFatigueThreshold    = 70.0
	meaningfulFatigue       = 20.0
	compressionThreshold    = 2
	plateauFatigueWindow    = 15.0
	overreachingFatigue     = 30.0
	shortDurationLimit      = 60.0
	conservativeSuitability = 75.0
	aggressiveSuitability   = 60.0
)

// graduatedReturn scales the first workouts after illness or injury
var graduatedReturn = []float64{0.5, 0.7, 0.9}

// Constraints limit how the orchestrator may rearrange the plan
type Constraints struct {
	MaxDailyDurationMin float64     `json:"maxDailyDurationMin,omitempty"`
	AvailableDays       []time.Time `json:"availableDays,omitempty"`
}

// AdjustRequest asks for a reason-driven adjustment
type AdjustRequest struct {
	Plan          model.Plan  `json:"plan"`
	Reason        Reason      `json:"reason"`
	AffectedDates []time.Time `json:"affectedDates"`
	Constraints   Constraints `json:"constraints"`
}

// AlternativePlan is a named variant with a fixed suitability score
type AlternativePlan struct {
	Name        string     `json:"name"`
	Plan        model.Plan `json:"plan"`
	Suitability float64    `json:"suitability"`
	Tradeoffs   string     `json:"tradeoffs"`
}

// AdjustmentResult is the orchestrator output
type AdjustmentResult struct {
	AdjustedPlan    model.Plan        `json:"adjustedPlan"`
	Modifications   []Modification    `json:"modifications"`
	Impact          ImpactSummary     `json:"impactSummary"`
	Warnings        []string          `json:"warnings"`
	Recommendations []string          `json:"recommendations"`
	Confidence      float64           `json:"confidence"`
	Alternatives    []AlternativePlan `json:"alternatives"`
}

// Orchestrator dispatches plan adjustments by reason
type Orchestrator struct {
	lib workouts.Library
	now func() time.Time
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(lib workouts.Library, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{lib: lib, now: now}
}

// adjustment is the working state of one AdjustPlan call
type adjustment struct {
	plan     model.Plan
	affected map[string]bool
	mods     []Modification
	warnings []string
	recs     []string
	stamp    time.Time
}

func (a *adjustment) record(action string, before, after *model.PlannedWorkout, date time.Time, reason string) {
	a.mods = append(a.mods, Modification{
		Date:      model.Day(date),
		Action:    action,
		Original:  before,
		Updated:   after,
		Reason:    reason,
		Timestamp: a.stamp,
	})
}

// AdjustPlan applies the strategy for req.Reason to a copy of the plan
func (o *Orchestrator) AdjustPlan(req AdjustRequest) (AdjustmentResult, error) {
	if len(req.AffectedDates) == 0 {
		return AdjustmentResult{}, fmt.Errorf("%w: at least one affected date is required", ErrInvalidRequest)
	}

	dates := uniqueDays(req.AffectedDates)
	a := &adjustment{
		plan:     req.Plan.Clone(),
		affected: make(map[string]bool, len(dates)),
		stamp:    o.now(),
	}
	var present []time.Time
	for _, d := range dates {
		a.affected[model.DayKey(d)] = true
		if a.plan.IndexOf(d) >= 0 {
			present = append(present, d)
		} else {
			a.warnings = append(a.warnings, fmt.Sprintf("No workout planned on %s", model.DayKey(d)))
		}
	}
	if len(present) == 0 {
		return AdjustmentResult{}, fmt.Errorf("%w: none of the affected dates are in the plan", ErrDateNotFound)
	}

	reason := req.Reason
	if reason == "" {
		reason = ReasonOther
	}

	switch reason {
	case ReasonMissedWorkout:
		o.missed(a, present, req.Constraints)
	case ReasonIllness, ReasonInjury:
		o.graduated(a, present, reason)
	case ReasonScheduleChange:
		o.reschedule(a, present, req.Constraints)
	case ReasonPlateau:
		o.vary(a, present)
	case ReasonOverreaching:
		o.deload(a, present)
	default:
		for _, d := range present {
			o.cancel(a, d, "Cancelled")
		}
		a.warnings = append(a.warnings, "Affected workouts were cancelled; redistribute their load across the coming weeks")
	}

	impact := Impact(req.Plan, a.plan)
	return AdjustmentResult{
		AdjustedPlan:    a.plan,
		Modifications:   a.mods,
		Impact:          impact,
		Warnings:        append(a.warnings, impactWarnings(impact)...),
		Recommendations: a.recs,
		Confidence:      adjustConfidence(reason, len(dates), req.Constraints),
		Alternatives:    alternatives(req.Plan, present),
	}, nil
}

// cancel turns the entry on date into a rest day
func (o *Orchestrator) cancel(a *adjustment, date time.Time, why string) (model.PlannedWorkout, bool) {
	i := a.plan.IndexOf(date)
	if i < 0 {
		return model.PlannedWorkout{}, false
	}
	orig := a.plan.Workouts[i]
	rest := model.RestDay(orig.Date, fmt.Sprintf("%s: %s", why, orig.Description))
	a.plan.Workouts[i] = rest
	a.record(ActionCancelled, snapshot(orig), snapshot(rest), orig.Date, why)
	return orig, true
}

// missed cancels every affected day, then moves each key session to a free
// day or, failing that, spreads its load over the days after it.
func (o *Orchestrator) missed(a *adjustment, dates []time.Time, c Constraints) {
	var key []model.PlannedWorkout
	for _, d := range dates {
		orig, ok := o.cancel(a, d, "Missed")
		if ok && orig.ExpectedFatigue > moveFatigueThreshold {
			key = append(key, orig)
		}
	}

	used := make(map[string]bool)
	for _, orig := range key {
		if o.move(a, orig, c, used, true) {
			continue
		}
		mods, absorbed := redistribute(&a.plan, a.plan.IndexOf(orig.Date), orig.ExpectedFatigue, DefaultOptions(), a.stamp)
		a.mods = append(a.mods, mods...)
		a.warnings = append(a.warnings, fmt.Sprintf("Could not find a free day for the key session missed on %s; %.0f of %.0f fatigue points spread over later days",
			model.DayKey(orig.Date), absorbed, orig.ExpectedFatigue))
	}
	if len(dates) > compressionThreshold {
		a.warnings = append(a.warnings, fmt.Sprintf("%d workouts missed; plan compression needs manual review", len(dates)))
	}
}

func (o *Orchestrator) reschedule(a *adjustment, dates []time.Time, c Constraints) {
	used := make(map[string]bool)
	for _, d := range dates {
		orig, ok := o.cancel(a, d, "Rescheduled")
		if !ok || orig.IsRest() {
			continue
		}
		if !o.move(a, orig, c, used, false) {
			a.warnings = append(a.warnings, fmt.Sprintf("No free day for the workout on %s; it was cancelled", model.DayKey(d)))
		}
	}
}

// move places w on the first available day that is not affected and holds
// no meaningful workout. With onlyLater the day must follow w's date.
func (o *Orchestrator) move(a *adjustment, w model.PlannedWorkout, c Constraints, used map[string]bool, onlyLater bool) bool {
	days := uniqueDays(c.AvailableDays)
	for _, day := range days {
		key := model.DayKey(day)
		if (onlyLater && !day.After(model.Day(w.Date))) || a.affected[key] || used[key] {
			continue
		}
		i := a.plan.IndexOf(day)
		if i >= 0 && meaningful(a.plan.Workouts[i]) {
			continue
		}

		moved := w
		moved.Date = day
		if c.MaxDailyDurationMin > 0 && moved.DurationMin > c.MaxDailyDurationMin {
			moved.DurationMin = c.MaxDailyDurationMin
			a.warnings = append(a.warnings, fmt.Sprintf("Moved session on %s shortened to %.0f min", key, c.MaxDailyDurationMin))
		}
		var before *model.PlannedWorkout
		if i >= 0 {
			before = snapshot(a.plan.Workouts[i])
			a.plan.Workouts[i] = moved
		} else if err := a.plan.Insert(moved); err != nil {
			continue
		}
		used[key] = true
		a.record(ActionMoved, before, snapshot(moved), day, fmt.Sprintf("Moved from %s", model.DayKey(w.Date)))
		return true
	}
	return false
}

func meaningful(w model.PlannedWorkout) bool {
	return !w.IsRest() && w.ExpectedFatigue > meaningfulFatigue
}

// graduated rests every affected day then eases back in over the next
// three workouts.
func (o *Orchestrator) graduated(a *adjustment, dates []time.Time, reason Reason) {
	for _, d := range dates {
		i := a.plan.IndexOf(d)
		orig := a.plan.Workouts[i]
		rest := model.RestDay(orig.Date, fmt.Sprintf("Rest: %s", reason))
		a.plan.Workouts[i] = rest
		a.record(ActionModified, snapshot(orig), snapshot(rest), orig.Date, fmt.Sprintf("Rest for %s", reason))
	}

	last := dates[len(dates)-1]
	step := 0
	for i := range a.plan.Workouts {
		if step >= len(graduatedReturn) {
			break
		}
		w := a.plan.Workouts[i]
		if !w.Date.After(last) || w.IsRest() {
			continue
		}
		pct := graduatedReturn[step]
		step++
		before := w
		w.ExpectedFatigue = math.Round(w.ExpectedFatigue * pct)
		w.DurationMin = math.Round(w.DurationMin * pct)
		w.Intensity = intensityLabel(w.ExpectedFatigue)
		w.Description = fmt.Sprintf("%s (graduated return: %.0f%%)", w.Description, pct*100)
		a.plan.Workouts[i] = w
		a.record(ActionModified, snapshot(before), snapshot(w), w.Date, fmt.Sprintf("Graduated return at %.0f%%", pct*100))
	}

	a.recs = append(a.recs, "Return to normal training only once symptoms have fully resolved")
	if reason == ReasonInjury {
		a.recs = append(a.recs, "Consult a medical professional or physiotherapist before resuming intensity")
	}
}

// vary swaps each affected workout for a different type of similar load
func (o *Orchestrator) vary(a *adjustment, dates []time.Time) {
	var all []workouts.Template
	if o.lib != nil {
		all = o.lib.All()
	}
	for _, d := range dates {
		i := a.plan.IndexOf(d)
		orig := a.plan.Workouts[i]
		if orig.IsRest() {
			continue
		}
		var best *workouts.Template
		gap := math.Inf(1)
		for j := range all {
			t := all[j]
			diff := math.Abs(t.FatigueScore - orig.ExpectedFatigue)
			if t.Type == orig.WorkoutType || t.Type == workouts.TypeRecovery || diff > plateauFatigueWindow {
				continue
			}
			if diff < gap {
				best, gap = &all[j], diff
			}
		}
		if best == nil {
			a.warnings = append(a.warnings, fmt.Sprintf("No alternative stimulus found for %s", model.DayKey(d)))
			continue
		}
		updated := workouts.ToPlanned(*best, orig)
		updated.Intensity = intensityLabel(updated.ExpectedFatigue)
		a.plan.Workouts[i] = updated
		a.record(ActionModified, snapshot(orig), snapshot(updated), d, fmt.Sprintf("Varied stimulus: %s instead of %s", best.Type, orig.WorkoutType))
	}
	a.recs = append(a.recs, "Reassess performance in two to three weeks after the new stimulus")
}

// deload replaces demanding affected days with the first recovery template
func (o *Orchestrator) deload(a *adjustment, dates []time.Time) {
	var recovery []workouts.Template
	if o.lib != nil {
		recovery = o.lib.GetRecoveryWorkouts()
	}
	for _, d := range dates {
		i := a.plan.IndexOf(d)
		orig := a.plan.Workouts[i]
		if orig.ExpectedFatigue <= overreachingFatigue {
			continue
		}
		var updated model.PlannedWorkout
		if len(recovery) > 0 {
			updated = workouts.ToPlanned(recovery[0], orig)
			updated.Intensity = intensityLabel(updated.ExpectedFatigue)
		} else {
			updated = model.RestDay(orig.Date, "Recovery day")
		}
		a.plan.Workouts[i] = updated
		a.record(ActionModified, snapshot(orig), snapshot(updated), d, "Replaced with recovery to address overreaching")
	}
	a.recs = append(a.recs, "Prioritise sleep and nutrition; reassess readiness before the next hard session")
}

// alternatives builds the conservative and aggressive variants from the
// original plan.
func alternatives(orig model.Plan, dates []time.Time) []AlternativePlan {
	conservative := orig.Clone()
	var lost float64
	for _, d := range dates {
		if i := conservative.IndexOf(d); i >= 0 {
			lost += conservative.Workouts[i].ExpectedFatigue
			conservative.Remove(d)
		}
	}

	aggressive := conservative.Clone()
	var targets []int
	for i, w := range aggressive.Workouts {
		if !w.IsRest() {
			targets = append(targets, i)
		}
	}
	if len(targets) > 0 && lost > 0 {
		share := lost / float64(len(targets))
		for _, i := range targets {
			w := aggressive.Workouts[i]
			w.ExpectedFatigue = math.Min(maxFatigue, w.ExpectedFatigue+share)
			w.Intensity = intensityLabel(w.ExpectedFatigue)
			aggressive.Workouts[i] = w
		}
	}

	return []AlternativePlan{
		{
			Name:        "conservative",
			Plan:        conservative,
			Suitability: conservativeSuitability,
			Tradeoffs:   "Lowest injury and fatigue risk; the missed training load is not made up",
		},
		{
			Name:        "aggressive",
			Plan:        aggressive,
			Suitability: aggressiveSuitability,
			Tradeoffs:   "Keeps total training load; every remaining workout gets harder",
		},
	}
}

func adjustConfidence(reason Reason, affected int, c Constraints) float64 {
	conf := 80.0
	if affected > 3 {
		conf -= 15
	}
	if reason == ReasonPlateau {
		conf -= 10
	}
	if c.MaxDailyDurationMin > 0 && c.MaxDailyDurationMin < shortDurationLimit {
		conf -= 10
	}
	if reason == ReasonScheduleChange {
		conf += 5
	}
	if affected == 1 {
		conf += 5
	}
	return math.Max(30, math.Min(95, conf))
}

func uniqueDays(in []time.Time) []time.Time {
	seen := make(map[string]bool, len(in))
	var out []time.Time
	for _, d := range in {
		key := model.DayKey(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Day(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
