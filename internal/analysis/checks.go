package analysis

import (
	"fmt"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// Quick check recommendations
const (
	QuickTrain = "train"
	QuickEasy  = "easy"
	QuickRest  = "rest"
)

// QuickCheck is a same-day go/no-go gate
type QuickCheck struct {
	CanTrain       bool     `json:"canTrain"`
	Recommendation string   `json:"recommendation"`
	Reasons        []string `json:"reasons"`
	TSB            *float64 `json:"tsb,omitempty"`
}

// QuickFatigueCheck gates today's session on the 7-day TSB (only when at
// least seven activities exist) and the latest recovery sample.
func (a *Assessor) QuickFatigueCheck(activities []model.ActivitySample, latest *model.RecoveryMetricsSample, date time.Time) QuickCheck {
	if date.IsZero() {
		date = a.calc.Today()
	}

	rest, easy := false, false
	var reasons []string

	check := QuickCheck{}
	if len(activities) >= AcuteWindowDays {
		tsb := a.calc.CalculateTSB(activities, date).TSB
		check.TSB = &tsb
		switch {
		case tsb < -30:
			rest = true
			reasons = append(reasons, fmt.Sprintf("training stress balance %.1f shows heavy accumulated fatigue", tsb))
		case tsb < -15:
			easy = true
			reasons = append(reasons, fmt.Sprintf("training stress balance %.1f shows moderate fatigue", tsb))
		}
	}

	if latest != nil {
		if bb := latest.BodyBattery; bb != nil {
			switch {
			case *bb < 20:
				rest = true
				reasons = append(reasons, fmt.Sprintf("body battery %.0f is critically low", *bb))
			case *bb < 40:
				easy = true
				reasons = append(reasons, fmt.Sprintf("body battery %.0f is low", *bb))
			}
		}
		if sleep := latest.SleepScore; sleep != nil && *sleep < 60 {
			easy = true
			reasons = append(reasons, fmt.Sprintf("sleep score %.0f indicates poor sleep", *sleep))
		}
		switch f := latest.SubjectiveFatigue; {
		case f >= 8:
			rest = true
			reasons = append(reasons, fmt.Sprintf("subjective fatigue %.0f/10 is very high", f))
		case f >= 7:
			easy = true
			reasons = append(reasons, fmt.Sprintf("subjective fatigue %.0f/10 is high", f))
		}
	}

	check.Reasons = reasons
	switch {
	case rest:
		check.Recommendation = QuickRest
	case easy:
		check.CanTrain = true
		check.Recommendation = QuickEasy
	default:
		check.CanTrain = true
		check.Recommendation = QuickTrain
		check.Reasons = append(check.Reasons, "no fatigue warning signs")
	}
	return check
}

// Overtraining severities
const (
	SeverityNone     = "none"
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// OvertrainingCheck lists the overtraining markers found
type OvertrainingCheck struct {
	Evaluated          bool     `json:"evaluated"`
	PerformanceDecline bool     `json:"performanceDecline"`
	PersistentFatigue  bool     `json:"persistentFatigue"`
	SleepDisturbance   bool     `json:"sleepDisturbance"`
	HRVSuppression     bool     `json:"hrvSuppression"`
	Markers            []string `json:"markers"`
	Severity           string   `json:"severity"`
	Recommendation     string   `json:"recommendation"`
}

// CheckOvertrainingMarkers looks for the classic overtraining signs. It
// needs at least 14 activities and 7 recovery samples.
func (a *Assessor) CheckOvertrainingMarkers(activities []model.ActivitySample, recovery []model.RecoveryMetricsSample, date time.Time) (OvertrainingCheck, []string) {
	if date.IsZero() {
		date = a.calc.Today()
	}
	date = model.Day(date)

	check := OvertrainingCheck{Severity: SeverityNone}
	if len(activities) < overtrainMinActs || len(recovery) < overtrainMinRec {
		check.Recommendation = "Not enough history to check for overtraining"
		return check, []string{fmt.Sprintf("overtraining check needs %d activities and %d recovery samples, have %d and %d",
			overtrainMinActs, overtrainMinRec, len(activities), len(recovery))}
	}
	check.Evaluated = true

	loads := DailyLoads(activities)
	recent := meanDailyLoad(loads, date, 0, 7)
	prior := meanDailyLoad(loads, date, 14, 21)
	if prior > 0 && recent < 0.8*prior {
		check.PerformanceDecline = true
		check.Markers = append(check.Markers, fmt.Sprintf("training load dropped to %.0f%% of three weeks ago", recent/prior*100))
	}

	samples := recoveryUpTo(recovery, date)
	last := samples
	if len(last) > 7 {
		last = last[len(last)-7:]
	}

	var fatigue, sleep []float64
	for _, s := range last {
		fatigue = append(fatigue, s.SubjectiveFatigue)
		if s.SleepScore != nil {
			sleep = append(sleep, *s.SleepScore)
		}
	}
	if avg := mean(fatigue); len(fatigue) > 0 && avg >= 7 {
		check.PersistentFatigue = true
		check.Markers = append(check.Markers, fmt.Sprintf("persistent fatigue (average %.1f/10 over the last %d days)", avg, len(fatigue)))
	}
	if avg := mean(sleep); len(sleep) > 0 && avg < 65 {
		check.SleepDisturbance = true
		check.Markers = append(check.Markers, fmt.Sprintf("poor sleep (average score %.0f)", avg))
	}

	hrv := metricValues(samples, func(s model.RecoveryMetricsSample) *float64 { return s.HRV })
	if len(hrv) >= 5 {
		recentHRV := mean(hrv[len(hrv)-3:])
		earlierHRV := mean(hrv[:len(hrv)-3])
		if earlierHRV > 0 && recentHRV < 0.85*earlierHRV {
			check.HRVSuppression = true
			check.Markers = append(check.Markers, fmt.Sprintf("HRV suppressed to %.0f%% of earlier values", recentHRV/earlierHRV*100))
		}
	}

	switch n := len(check.Markers); {
	case n >= 3:
		check.Severity = SeveritySevere
		check.Recommendation = "Stop structured training and consult a medical professional"
	case n == 2:
		check.Severity = SeverityModerate
		check.Recommendation = "Take several easy or rest days and monitor recovery closely"
	case n == 1:
		check.Severity = SeverityMild
		check.Recommendation = "Reduce intensity for a few days and keep tracking recovery"
	default:
		check.Recommendation = "No overtraining markers detected"
	}
	return check, nil
}

// meanDailyLoad averages daily load over days [from, to) before anchor
func meanDailyLoad(loads map[string]float64, anchor time.Time, from, to int) float64 {
	var sum float64
	for d := from; d < to; d++ {
		sum += loads[model.DayKey(model.AddDays(anchor, -d))]
	}
	return sum / float64(to-from)
}
