package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/davidjes1/trAIn-sub002/internal/analysis"
	"github.com/davidjes1/trAIn-sub002/internal/apperrors"
	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/plan"
	"github.com/davidjes1/trAIn-sub002/internal/recommend"
	"github.com/davidjes1/trAIn-sub002/internal/workouts"
)

// Algorithm names reported in result contexts
const (
	algoEWMA          = "exponentially-weighted-load"
	algoTrend         = "least-squares-trend"
	algoTrimmedMean   = "trimmed-mean-baseline"
	algoReadiness     = "weighted-readiness-score"
	algoQuickCheck    = "same-day-gate"
	algoOvertraining  = "overtraining-markers"
	algoBucketScore   = "bucketed-recovery-score"
	algoTemplatePick  = "filtered-random-template"
	algoRebalance     = "bounded-load-redistribution"
	algoAdjustReasons = "reason-strategy-adjustment"
)

// Engine exposes the calculation core through total entry points: every
// method returns an envelope and never panics past its boundary.
type Engine struct {
	calc         *analysis.Calculator
	assessor     *analysis.Assessor
	recommender  *recommend.Recommender
	rebalancer   *plan.Rebalancer
	orchestrator *plan.Orchestrator
	now          func() time.Time
	logger       *slog.Logger
}

// NewEngine wires the core components. A nil library uses the embedded
// catalog, a nil rnd an unseeded source and a nil clock time.Now.
func NewEngine(lib workouts.Library, rnd recommend.Rand, now func() time.Time, logger *slog.Logger) *Engine {
	if lib == nil {
		lib = workouts.DefaultLibrary()
	}
	if now == nil {
		now = time.Now
	}
	calc := analysis.NewCalculatorWithClock(now)
	return &Engine{
		calc:         calc,
		assessor:     analysis.NewAssessor(calc),
		recommender:  recommend.New(lib, calc, rnd),
		rebalancer:   plan.NewRebalancer(lib, now),
		orchestrator: plan.NewOrchestrator(lib, now),
		now:          now,
		logger:       logger.With("component", "service.Engine"),
	}
}

type call struct {
	op         string
	userID     string
	algorithms []string
	params     map[string]any
}

func (e *Engine) context(c call) RequestContext {
	return RequestContext{
		RequestID:  uuid.NewString(),
		UserID:     c.userID,
		Timestamp:  e.now(),
		Algorithms: c.algorithms,
		Parameters: c.params,
		Version:    EngineVersion,
	}
}

// run executes fn inside the envelope. A panic or error becomes
// Success false with the message in Error.
func run[T any](e *Engine, c call, fn func() (T, []string, error)) (res Result[T]) {
	start := time.Now()
	res.Context = e.context(c)
	res.Warnings = []string{}
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Data = nil
			res.Error = fmt.Sprintf("internal error: %v", r)
			e.logger.Error("entry point panicked", "op", c.op, "user_id", c.userID, "panic", r)
		}
		res.ProcessingTime = time.Since(start)
	}()

	if c.userID == "" {
		res.Error = "user id is required"
		return res
	}

	data, warnings, err := fn()
	res.Warnings = append(res.Warnings, warnings...)
	if err != nil {
		res.Error = err.Error()
		e.logger.Warn("entry point failed", "op", c.op, "user_id", c.userID, "code", apperrors.CodeOf(err), "error", err)
		return res
	}
	res.Success = true
	res.Data = &data
	e.logger.Debug("entry point done", "op", c.op, "user_id", c.userID, "warnings", len(res.Warnings))
	return res
}

func invalid(err error) error {
	return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid input", err)
}

// CalculateTSB computes acute and chronic load and their balance on
// targetDate. A zero targetDate means today.
func (e *Engine) CalculateTSB(userID string, activities []model.ActivitySample, targetDate time.Time) Result[analysis.TSBResult] {
	c := call{
		op:         "CalculateTSB",
		userID:     userID,
		algorithms: []string{algoEWMA, algoTrend},
		params: map[string]any{
			"acuteWindowDays":   analysis.AcuteWindowDays,
			"chronicWindowDays": analysis.ChronicWindowDays,
			"activityCount":     len(activities),
		},
	}
	return run(e, c, func() (analysis.TSBResult, []string, error) {
		if err := model.ValidateActivities(activities); err != nil {
			return analysis.TSBResult{}, nil, invalid(err)
		}
		res := e.calc.CalculateTSB(activities, targetDate)
		var warnings []string
		if len(activities) == 0 {
			warnings = append(warnings, "no activities supplied; all loads are zero")
		} else if res.DataQuality == "poor" {
			warnings = append(warnings, fmt.Sprintf("only %d activities in the chronic window; TSB is unreliable", res.SampleCount))
		}
		return res, warnings, nil
	})
}

// AnalyzeIndicators compares the latest recovery sample with the athlete's
// trimmed-mean baseline. windowDays <= 0 uses the default window.
func (e *Engine) AnalyzeIndicators(userID string, samples []model.RecoveryMetricsSample, windowDays int) Result[[]analysis.FatigueIndicator] {
	if windowDays <= 0 {
		windowDays = analysis.DefaultIndicatorWindow
	}
	c := call{
		op:         "AnalyzeIndicators",
		userID:     userID,
		algorithms: []string{algoTrimmedMean},
		params:     map[string]any{"windowDays": windowDays, "sampleCount": len(samples)},
	}
	return run(e, c, func() ([]analysis.FatigueIndicator, []string, error) {
		if err := model.ValidateRecovery(samples); err != nil {
			return nil, nil, invalid(err)
		}
		indicators, warnings := analysis.AnalyzeIndicators(samples, windowDays)
		if indicators == nil {
			indicators = []analysis.FatigueIndicator{}
		}
		return indicators, warnings, nil
	})
}

// AssessReadiness scores readiness for date from load and recovery signals
func (e *Engine) AssessReadiness(userID string, activities []model.ActivitySample, recovery []model.RecoveryMetricsSample, profile *model.UserTrainingProfile, date time.Time) Result[analysis.ReadinessAssessment] {
	c := call{
		op:         "AssessReadiness",
		userID:     userID,
		algorithms: []string{algoEWMA, algoTrimmedMean, algoReadiness},
		params: map[string]any{
			"indicatorWindow": analysis.DefaultIndicatorWindow,
			"activityCount":   len(activities),
			"recoveryCount":   len(recovery),
		},
	}
	return run(e, c, func() (analysis.ReadinessAssessment, []string, error) {
		if profile == nil {
			return analysis.ReadinessAssessment{}, nil, invalid(errors.New("profile is required"))
		}
		if err := profile.Validate(); err != nil {
			return analysis.ReadinessAssessment{}, nil, invalid(err)
		}
		if err := model.ValidateActivities(activities); err != nil {
			return analysis.ReadinessAssessment{}, nil, invalid(err)
		}
		if err := model.ValidateRecovery(recovery); err != nil {
			return analysis.ReadinessAssessment{}, nil, invalid(err)
		}
		assessment, warnings := e.assessor.Assess(activities, recovery, *profile, date)
		return assessment, warnings, nil
	})
}

// QuickFatigueCheck is the same-day go/no-go gate
func (e *Engine) QuickFatigueCheck(userID string, activities []model.ActivitySample, latest *model.RecoveryMetricsSample, date time.Time) Result[analysis.QuickCheck] {
	c := call{
		op:         "QuickFatigueCheck",
		userID:     userID,
		algorithms: []string{algoEWMA, algoQuickCheck},
		params:     map[string]any{"activityCount": len(activities), "hasRecovery": latest != nil},
	}
	return run(e, c, func() (analysis.QuickCheck, []string, error) {
		if err := model.ValidateActivities(activities); err != nil {
			return analysis.QuickCheck{}, nil, invalid(err)
		}
		if latest != nil {
			if err := latest.Validate(); err != nil {
				return analysis.QuickCheck{}, nil, invalid(err)
			}
		}
		var warnings []string
		if len(activities) < analysis.AcuteWindowDays {
			warnings = append(warnings, fmt.Sprintf("TSB skipped: needs %d activities, have %d", analysis.AcuteWindowDays, len(activities)))
		}
		if latest == nil {
			warnings = append(warnings, "no recovery sample supplied")
		}
		return e.assessor.QuickFatigueCheck(activities, latest, date), warnings, nil
	})
}

// CheckOvertrainingMarkers looks for load decline, persistent fatigue, poor
// sleep and HRV suppression
func (e *Engine) CheckOvertrainingMarkers(userID string, activities []model.ActivitySample, recovery []model.RecoveryMetricsSample, date time.Time) Result[analysis.OvertrainingCheck] {
	c := call{
		op:         "CheckOvertrainingMarkers",
		userID:     userID,
		algorithms: []string{algoOvertraining},
		params:     map[string]any{"activityCount": len(activities), "recoveryCount": len(recovery)},
	}
	return run(e, c, func() (analysis.OvertrainingCheck, []string, error) {
		if err := model.ValidateActivities(activities); err != nil {
			return analysis.OvertrainingCheck{}, nil, invalid(err)
		}
		if err := model.ValidateRecovery(recovery); err != nil {
			return analysis.OvertrainingCheck{}, nil, invalid(err)
		}
		check, warnings := e.assessor.CheckOvertrainingMarkers(activities, recovery, date)
		return check, warnings, nil
	})
}

// RecommendWorkout picks tomorrow's workout
func (e *Engine) RecommendWorkout(req recommend.Request) Result[recommend.WorkoutRecommendation] {
	c := call{
		op:         "RecommendWorkout",
		userID:     req.UserID,
		algorithms: []string{algoEWMA, algoBucketScore, algoTemplatePick},
		params: map[string]any{
			"maxHistoryDays": recommend.MaxHistoryDays,
			"activityCount":  len(req.Activities),
			"recoveryCount":  len(req.Recovery),
			"weather":        req.Weather != nil,
		},
	}
	return run(e, c, func() (recommend.WorkoutRecommendation, []string, error) {
		if err := model.ValidateActivities(req.Activities); err != nil {
			return recommend.WorkoutRecommendation{}, nil, invalid(err)
		}
		if err := model.ValidateRecovery(req.Recovery); err != nil {
			return recommend.WorkoutRecommendation{}, nil, invalid(err)
		}
		if req.Profile != nil {
			if err := req.Profile.Validate(); err != nil {
				return recommend.WorkoutRecommendation{}, nil, invalid(err)
			}
		}
		rec, err := e.recommender.Recommend(req)
		if err != nil {
			if errors.Is(err, recommend.ErrInvalidRequest) || errors.Is(err, recommend.ErrHistoryTooOld) {
				return rec, nil, invalid(err)
			}
			return rec, nil, err
		}
		return rec, rec.Warnings, nil
	})
}

// ModifyWorkout applies a single-day change to p. A date missing from the
// plan yields NotFound rather than a system error.
func (e *Engine) ModifyWorkout(p model.Plan, date time.Time, action string, opts plan.Options) (res PlanChangeResult) {
	start := time.Now()
	res.Context = e.context(call{
		userID:     p.UserID,
		algorithms: []string{algoRebalance},
		params: map[string]any{
			"action":                  action,
			"date":                    model.DayKey(date),
			"redistribute":            opts.Redistribute,
			"preserveHardDays":        opts.PreserveHardDays,
			"maxDailyFatigueIncrease": opts.MaxDailyFatigueIncrease,
		},
	})
	res.Warnings, res.Modifications, res.Recommendations = []string{}, []plan.Modification{}, []string{}
	defer e.finishPlanChange("ModifyWorkout", &res, start)

	normalized, err := model.NewPlan(p.ID, p.UserID, p.Workouts)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	act, err := plan.ParseAction(action)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	out, err := e.rebalancer.ModifyWorkout(normalized, date, act, opts)
	if err != nil {
		e.planFailure(&res, date, err)
		return res
	}

	res.Success = true
	res.AdjustedPlan = &out.AdjustedPlan
	res.Modifications = out.Modifications
	res.ImpactSummary = out.Impact
	res.Warnings = append(res.Warnings, out.Warnings...)
	if out.Unabsorbed > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%.1f fatigue points could not be redistributed", out.Unabsorbed))
	}
	res.Recommendations = append(res.Recommendations, out.Recommendations...)
	return res
}

// AdjustPlan applies a reason-driven strategy to the affected dates
func (e *Engine) AdjustPlan(req plan.AdjustRequest) (env AdjustmentEnvelope) {
	start := time.Now()
	keys := make([]string, 0, len(req.AffectedDates))
	for _, d := range req.AffectedDates {
		keys = append(keys, model.DayKey(d))
	}
	env.Context = e.context(call{
		userID:     req.Plan.UserID,
		algorithms: []string{algoAdjustReasons},
		params: map[string]any{
			"reason":              string(req.Reason),
			"affectedDates":       keys,
			"maxDailyDurationMin": req.Constraints.MaxDailyDurationMin,
			"availableDays":       len(req.Constraints.AvailableDays),
		},
	})
	env.Warnings, env.Modifications, env.Recommendations = []string{}, []plan.Modification{}, []string{}
	defer e.finishPlanChange("AdjustPlan", &env.PlanChangeResult, start)

	normalized, err := model.NewPlan(req.Plan.ID, req.Plan.UserID, req.Plan.Workouts)
	if err != nil {
		env.Error = err.Error()
		return env
	}
	req.Plan = normalized

	out, err := e.orchestrator.AdjustPlan(req)
	if err != nil {
		var date time.Time
		if len(req.AffectedDates) > 0 {
			date = req.AffectedDates[0]
		}
		e.planFailure(&env.PlanChangeResult, date, err)
		return env
	}

	env.Success = true
	env.AdjustedPlan = &out.AdjustedPlan
	env.Modifications = out.Modifications
	env.ImpactSummary = out.Impact
	env.Warnings = append(env.Warnings, out.Warnings...)
	env.Recommendations = append(env.Recommendations, out.Recommendations...)
	env.Confidence = out.Confidence
	env.Alternatives = out.Alternatives
	return env
}

func (e *Engine) planFailure(res *PlanChangeResult, date time.Time, err error) {
	if errors.Is(err, plan.ErrDateNotFound) {
		res.NotFound = true
		if date.IsZero() {
			res.Error = "No workout planned on the requested dates"
		} else {
			res.Error = fmt.Sprintf("No workout planned on %s", model.DayKey(date))
		}
		return
	}
	res.Error = err.Error()
}

func (e *Engine) finishPlanChange(op string, res *PlanChangeResult, start time.Time) {
	if r := recover(); r != nil {
		res.Success = false
		res.AdjustedPlan = nil
		res.Error = fmt.Sprintf("internal error: %v", r)
		e.logger.Error("entry point panicked", "op", op, "user_id", res.Context.UserID, "panic", r)
	} else if !res.Success {
		e.logger.Warn("plan change failed", "op", op, "user_id", res.Context.UserID, "not_found", res.NotFound, "error", res.Error)
	}
	res.ProcessingTime = time.Since(start)
}
