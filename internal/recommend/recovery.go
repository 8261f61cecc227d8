package recommend

import (
	"fmt"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// RecoveryStatus is the coarse same-session recovery grade
type RecoveryStatus string

const (
	RecoveryExcellent RecoveryStatus = "excellent"
	RecoveryGood      RecoveryStatus = "good"
	RecoveryFair      RecoveryStatus = "fair"
	RecoveryPoor      RecoveryStatus = "poor"
)

// Readiness is what the coarse scorer allows for the next session
type Readiness string

const (
	FullTraining     Readiness = "full-training"
	ModerateTraining Readiness = "moderate-training"
	EasyTraining     Readiness = "easy-training"
	RestDay          Readiness = "rest"
)

const (
	recoveryBase       = 70.0
	hrvBaselineSamples = 7
	fatigueSamples     = 3
)

// RecoveryScore is the output of the coarse scorer. It looks only at the
// latest sample and a short trailing baseline, unlike the readiness
// assessment which grades deviations over four weeks.
type RecoveryScore struct {
	Score          float64        `json:"score"`
	Status         RecoveryStatus `json:"status"`
	Recommendation Readiness      `json:"recommendation"`
	Factors        []string       `json:"factors"`
	HasData        bool           `json:"hasData"`
}

// ScoreRecovery grades recovery for the next session
func ScoreRecovery(samples []model.RecoveryMetricsSample) RecoveryScore {
	if len(samples) == 0 {
		s := RecoveryScore{Score: recoveryBase, Factors: []string{"no recovery data, assuming moderate recovery"}}
		s.Status, s.Recommendation = gradeRecovery(s.Score)
		return s
	}

	sorted := model.SortRecovery(samples)
	latest := sorted[len(sorted)-1]
	score := recoveryBase
	var factors []string

	if bb := latest.BodyBattery; bb != nil {
		switch {
		case *bb < 25:
			score -= 30
			factors = append(factors, fmt.Sprintf("body battery %.0f is very low", *bb))
		case *bb < 50:
			score -= 15
			factors = append(factors, fmt.Sprintf("body battery %.0f is below average", *bb))
		case *bb > 75:
			score += 10
			factors = append(factors, fmt.Sprintf("body battery %.0f is high", *bb))
		}
	}

	if sleep := latest.SleepScore; sleep != nil {
		switch {
		case *sleep < 60:
			score -= 20
			factors = append(factors, fmt.Sprintf("sleep score %.0f is poor", *sleep))
		case *sleep < 75:
			score -= 10
			factors = append(factors, fmt.Sprintf("sleep score %.0f is fair", *sleep))
		case *sleep > 85:
			score += 10
			factors = append(factors, fmt.Sprintf("sleep score %.0f is excellent", *sleep))
		}
	}

	if latest.HRV != nil {
		if baseline, ok := trailingHRV(sorted[:len(sorted)-1]); ok && baseline > 0 {
			dev := (*latest.HRV - baseline) / baseline * 100
			switch {
			case dev < -15:
				score -= 20
				factors = append(factors, fmt.Sprintf("HRV %.0f%% below baseline", -dev))
			case dev < -5:
				score -= 10
				factors = append(factors, fmt.Sprintf("HRV %.0f%% below baseline", -dev))
			case dev > 5:
				score += 5
				factors = append(factors, fmt.Sprintf("HRV %.0f%% above baseline", dev))
			}
		}
	}

	recent := sorted
	if len(recent) > fatigueSamples {
		recent = recent[len(recent)-fatigueSamples:]
	}
	var sum float64
	for _, s := range recent {
		sum += s.SubjectiveFatigue
	}
	switch avg := sum / float64(len(recent)); {
	case avg >= 8:
		score -= 25
		factors = append(factors, fmt.Sprintf("recent subjective fatigue %.1f/10 is very high", avg))
	case avg >= 6:
		score -= 10
		factors = append(factors, fmt.Sprintf("recent subjective fatigue %.1f/10 is elevated", avg))
	case avg <= 3:
		score += 10
		factors = append(factors, fmt.Sprintf("recent subjective fatigue %.1f/10 is low", avg))
	}

	score = max(0, min(100, score))
	status, rec := gradeRecovery(score)
	return RecoveryScore{Score: score, Status: status, Recommendation: rec, Factors: factors, HasData: true}
}

// trailingHRV averages up to the last seven HRV values
func trailingHRV(samples []model.RecoveryMetricsSample) (float64, bool) {
	var values []float64
	for i := len(samples) - 1; i >= 0 && len(values) < hrvBaselineSamples; i-- {
		if samples[i].HRV != nil {
			values = append(values, *samples[i].HRV)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

func gradeRecovery(score float64) (RecoveryStatus, Readiness) {
	switch {
	case score >= 80:
		return RecoveryExcellent, FullTraining
	case score >= 60:
		return RecoveryGood, ModerateTraining
	case score >= 40:
		return RecoveryFair, EasyTraining
	default:
		return RecoveryPoor, RestDay
	}
}
