package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// OverallStatus is the readiness verdict
type OverallStatus string

const (
	StatusFresh       OverallStatus = "fresh"
	StatusNormalReady OverallStatus = "normal"
	StatusFatigued    OverallStatus = "fatigued"
	StatusOvertrained OverallStatus = "overtrained"
)

// RiskLevel of continuing planned training
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Recommendation for the coming days
type Recommendation string

const (
	RecommendFullTraining     Recommendation = "full-training"
	RecommendActiveRecovery   Recommendation = "active-recovery"
	RecommendRest             Recommendation = "rest"
	RecommendMedicalAttention Recommendation = "medical-attention"
)

// TrendDirection of recovery over the last two weeks
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendStable           TrendDirection = "stable"
	TrendDeclining        TrendDirection = "declining"
	TrendRapidlyDeclining TrendDirection = "rapidly-declining"
	TrendInsufficientData TrendDirection = "insufficient-data"
)

const (
	trendWindowDays  = 14
	trendMinSamples  = 7
	overtrainMinActs = 14
	overtrainMinRec  = 7
)

// ReadinessTrend compares the two halves of the recent recovery window
type ReadinessTrend struct {
	Direction             TrendDirection `json:"direction"`
	Change                float64        `json:"change"` // mean fatigue, second half minus first
	Confidence            float64        `json:"confidence"`
	SampleCount           int            `json:"sampleCount"`
	ProjectedRecoveryDays int            `json:"projectedRecoveryDays"`
}

// ScoreFactor records one contribution to the readiness score
type ScoreFactor struct {
	Source string  `json:"source"`
	Points float64 `json:"points"`
	Detail string  `json:"detail"`
}

// ReadinessAssessment is the combined fatigue verdict
type ReadinessAssessment struct {
	Date             time.Time          `json:"date"`
	Score            float64            `json:"score"`
	OverallStatus    OverallStatus      `json:"overallStatus"`
	RiskLevel        RiskLevel          `json:"riskLevel"`
	Recommendation   Recommendation     `json:"recommendation"`
	Indicators       []FatigueIndicator `json:"indicators"`
	Trend            ReadinessTrend     `json:"trend"`
	NextReassessment time.Time          `json:"nextReassessment"`
	TSB              TSBResult          `json:"tsb"`
	Factors          []ScoreFactor      `json:"factors"`
}

// Assessor combines training load, recovery indicators and the profile
type Assessor struct {
	calc *Calculator
}

// NewAssessor creates an assessor on top of a load calculator
func NewAssessor(calc *Calculator) *Assessor {
	if calc == nil {
		calc = NewCalculator()
	}
	return &Assessor{calc: calc}
}

// Assess produces the readiness verdict for date. A zero date means today.
func (a *Assessor) Assess(activities []model.ActivitySample, recovery []model.RecoveryMetricsSample, profile model.UserTrainingProfile, date time.Time) (ReadinessAssessment, []string) {
	if date.IsZero() {
		date = a.calc.Today()
	}
	date = model.Day(date)

	samples := recoveryUpTo(recovery, date)
	tsb := a.calc.CalculateTSB(activities, date)
	indicators, warnings := AnalyzeIndicators(samples, DefaultIndicatorWindow)

	score := 50.0
	var factors []ScoreFactor

	if pts, detail := tsbPoints(tsb.TSB); pts != 0 {
		score += pts
		factors = append(factors, ScoreFactor{Source: "tsb", Points: pts, Detail: detail})
	}
	for _, ind := range indicators {
		pts := indicatorPoints(ind.Status)
		if pts == 0 {
			continue
		}
		score += pts
		factors = append(factors, ScoreFactor{
			Source: ind.Metric,
			Points: pts,
			Detail: fmt.Sprintf("%s is %s (%+.1f%% vs baseline)", ind.Metric, ind.Status, ind.PercentChange),
		})
	}
	switch {
	case profile.Age > 50:
		score += 5
		factors = append(factors, ScoreFactor{Source: "age", Points: 5, Detail: "age over 50 slows recovery"})
	case profile.Age > 40:
		score += 3
		factors = append(factors, ScoreFactor{Source: "age", Points: 3, Detail: "age over 40 slows recovery"})
	}
	score = clamp(score, 0, 100)

	status, risk, rec := classifyScore(score)
	trend := recoveryTrend(samples, date, status)
	if trend.Direction == TrendInsufficientData {
		warnings = append(warnings, fmt.Sprintf("recovery trend needs %d samples in the last %d days, have %d", trendMinSamples, trendWindowDays, trend.SampleCount))
	}

	return ReadinessAssessment{
		Date:             date,
		Score:            score,
		OverallStatus:    status,
		RiskLevel:        risk,
		Recommendation:   rec,
		Indicators:       indicators,
		Trend:            trend,
		NextReassessment: model.AddDays(date, reassessmentDays(status, trend.Direction)),
		TSB:              tsb,
		Factors:          factors,
	}, warnings
}

func tsbPoints(tsb float64) (float64, string) {
	switch {
	case tsb < -40:
		return 25, "training stress balance is very negative"
	case tsb < -25:
		return 15, "training stress balance is strongly negative"
	case tsb < -10:
		return 10, "training stress balance is negative"
	case tsb > 10:
		return -10, "training stress balance is positive"
	}
	return 0, ""
}

func indicatorPoints(s IndicatorStatus) float64 {
	switch s {
	case StatusCritical:
		return 15
	case StatusConcerning:
		return 10
	case StatusElevated:
		return 5
	}
	return 0
}

func classifyScore(score float64) (OverallStatus, RiskLevel, Recommendation) {
	switch {
	case score >= 85:
		return StatusOvertrained, RiskCritical, RecommendMedicalAttention
	case score >= 70:
		return StatusFatigued, RiskHigh, RecommendRest
	case score >= 55:
		return StatusFatigued, RiskModerate, RecommendActiveRecovery
	case score >= 40:
		return StatusNormalReady, RiskLow, RecommendFullTraining
	default:
		return StatusFresh, RiskLow, RecommendFullTraining
	}
}

func recoveryTrend(samples []model.RecoveryMetricsSample, date time.Time, status OverallStatus) ReadinessTrend {
	var recent []float64
	for _, s := range samples {
		ago := model.DaysBetween(s.Date, date)
		if ago >= 0 && ago < trendWindowDays {
			recent = append(recent, s.SubjectiveFatigue)
		}
	}

	trend := ReadinessTrend{
		SampleCount: len(recent),
		Confidence:  math.Min(90, float64(len(recent))*6),
	}
	if len(recent) < trendMinSamples {
		trend.Direction = TrendInsufficientData
		trend.ProjectedRecoveryDays = projectedRecoveryDays(status, trend.Direction)
		return trend
	}

	half := len(recent) / 2
	trend.Change = mean(recent[half:]) - mean(recent[:half])
	switch {
	case trend.Change < -1:
		trend.Direction = TrendImproving
	case trend.Change > 2.5:
		trend.Direction = TrendRapidlyDeclining
	case trend.Change > 1.5:
		trend.Direction = TrendDeclining
	default:
		trend.Direction = TrendStable
	}
	trend.ProjectedRecoveryDays = projectedRecoveryDays(status, trend.Direction)
	return trend
}

var recoveryDaysTable = map[OverallStatus]map[TrendDirection]int{
	StatusOvertrained: {TrendImproving: 7, TrendStable: 14, TrendDeclining: 14, TrendRapidlyDeclining: 14, TrendInsufficientData: 14},
	StatusFatigued:    {TrendImproving: 3, TrendStable: 5, TrendDeclining: 7, TrendRapidlyDeclining: 10, TrendInsufficientData: 5},
	StatusNormalReady: {TrendImproving: 1, TrendStable: 2, TrendDeclining: 4, TrendRapidlyDeclining: 6, TrendInsufficientData: 2},
}

func projectedRecoveryDays(status OverallStatus, dir TrendDirection) int {
	return recoveryDaysTable[status][dir]
}

func reassessmentDays(status OverallStatus, dir TrendDirection) int {
	switch status {
	case StatusOvertrained:
		return 2
	case StatusFatigued:
		if dir == TrendDeclining || dir == TrendRapidlyDeclining {
			return 3
		}
		return 4
	case StatusNormalReady:
		return 7
	default:
		return 10
	}
}

// recoveryUpTo returns sorted samples dated on or before date
func recoveryUpTo(samples []model.RecoveryMetricsSample, date time.Time) []model.RecoveryMetricsSample {
	sorted := model.SortRecovery(samples)
	out := sorted[:0]
	for _, s := range sorted {
		if !model.Day(s.Date).After(date) {
			out = append(out, s)
		}
	}
	return out
}
