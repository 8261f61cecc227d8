package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// IndicatorStatus is the severity of a fatigue indicator. Values are
// ordered: a larger value is more severe.
type IndicatorStatus int

const (
	StatusNormal IndicatorStatus = iota
	StatusElevated
	StatusConcerning
	StatusCritical
)

func (s IndicatorStatus) String() string {
	switch s {
	case StatusElevated:
		return "elevated"
	case StatusConcerning:
		return "concerning"
	case StatusCritical:
		return "critical"
	default:
		return "normal"
	}
}

// MarshalText encodes the status by name
func (s IndicatorStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name
func (s *IndicatorStatus) UnmarshalText(text []byte) error {
	for st := StatusNormal; st <= StatusCritical; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown indicator status %q", text)
}

// Metric names
const (
	MetricHRV               = "hrv"
	MetricRestingHR         = "restingHR"
	MetricBodyBattery       = "bodyBattery"
	MetricSleepScore        = "sleepScore"
	MetricSubjectiveFatigue = "subjectiveFatigue"
)

// DefaultIndicatorWindow is the number of recent samples analysed
const DefaultIndicatorWindow = 28

// FatigueIndicator is one metric's deviation from the athlete's baseline
type FatigueIndicator struct {
	Metric        string          `json:"metric"`
	CurrentValue  float64         `json:"currentValue"`
	BaselineValue float64         `json:"baselineValue"`
	PercentChange float64         `json:"percentChange"`
	Status        IndicatorStatus `json:"status"`
}

type metricRule struct {
	name       string
	label      string
	minSamples int
	value      func(model.RecoveryMetricsSample) *float64
	status     func(current, pct float64) IndicatorStatus
}

var metricRules = []metricRule{
	{
		name: MetricHRV, label: "HRV", minSamples: 7,
		value: func(s model.RecoveryMetricsSample) *float64 { return s.HRV },
		status: func(_, pct float64) IndicatorStatus {
			switch {
			case pct < -15:
				return StatusCritical
			case pct < -10:
				return StatusConcerning
			case pct < -5:
				return StatusElevated
			}
			return StatusNormal
		},
	},
	{
		name: MetricRestingHR, label: "resting HR", minSamples: 7,
		value: func(s model.RecoveryMetricsSample) *float64 { return s.RestingHR },
		status: func(_, pct float64) IndicatorStatus {
			switch {
			case pct > 8:
				return StatusCritical
			case pct > 5:
				return StatusConcerning
			case pct > 3:
				return StatusElevated
			}
			return StatusNormal
		},
	},
	{
		name: MetricBodyBattery, label: "body battery", minSamples: 5,
		value: func(s model.RecoveryMetricsSample) *float64 { return s.BodyBattery },
		status: func(current, pct float64) IndicatorStatus {
			switch {
			case current < 20:
				return StatusCritical
			case current < 30:
				return StatusConcerning
			case current < 50 || pct < -20:
				return StatusElevated
			}
			return StatusNormal
		},
	},
	{
		name: MetricSleepScore, label: "sleep", minSamples: 5,
		value: func(s model.RecoveryMetricsSample) *float64 { return s.SleepScore },
		status: func(current, pct float64) IndicatorStatus {
			switch {
			case current < 60:
				return StatusCritical
			case current < 70:
				return StatusConcerning
			case current < 80 || pct < -15:
				return StatusElevated
			}
			return StatusNormal
		},
	},
}

// AnalyzeIndicators computes deviation-from-baseline indicators over the
// most recent windowDays samples. Metrics without enough samples are omitted
// and reported in the returned warnings.
func AnalyzeIndicators(samples []model.RecoveryMetricsSample, windowDays int) ([]FatigueIndicator, []string) {
	if windowDays <= 0 {
		windowDays = DefaultIndicatorWindow
	}
	if len(samples) == 0 {
		return nil, []string{"no recovery samples available"}
	}

	window := model.SortRecovery(samples)
	if len(window) > windowDays {
		window = window[len(window)-windowDays:]
	}

	var indicators []FatigueIndicator
	var warnings []string

	for _, rule := range metricRules {
		values := metricValues(window, rule.value)
		if len(values) < rule.minSamples {
			warnings = append(warnings, fmt.Sprintf("insufficient %s samples (%d < %d)", rule.label, len(values), rule.minSamples))
			continue
		}
		current := values[len(values)-1]
		baseline := TrimmedMean(values[:len(values)-1], 0.2)
		pct := percentChange(current, baseline)
		indicators = append(indicators, FatigueIndicator{
			Metric:        rule.name,
			CurrentValue:  current,
			BaselineValue: baseline,
			PercentChange: pct,
			Status:        rule.status(current, pct),
		})
	}

	// Subjective fatigue is required on every sample
	fatigue := make([]float64, len(window))
	for i, s := range window {
		fatigue[i] = s.SubjectiveFatigue
	}
	current := fatigue[len(fatigue)-1]
	baseline := mean(fatigue)
	indicators = append(indicators, FatigueIndicator{
		Metric:        MetricSubjectiveFatigue,
		CurrentValue:  current,
		BaselineValue: baseline,
		PercentChange: percentChange(current, baseline),
		Status:        fatigueStatus(current),
	})

	return indicators, warnings
}

// WorstStatus returns the most severe status among indicators
func WorstStatus(indicators []FatigueIndicator) IndicatorStatus {
	worst := StatusNormal
	for _, ind := range indicators {
		if ind.Status > worst {
			worst = ind.Status
		}
	}
	return worst
}

func fatigueStatus(v float64) IndicatorStatus {
	switch {
	case v >= 8:
		return StatusCritical
	case v >= 7:
		return StatusConcerning
	case v >= 6:
		return StatusElevated
	}
	return StatusNormal
}

func metricValues(samples []model.RecoveryMetricsSample, get func(model.RecoveryMetricsSample) *float64) []float64 {
	var values []float64
	for _, s := range samples {
		if v := get(s); v != nil {
			values = append(values, *v)
		}
	}
	return values
}

// TrimmedMean drops floor(fraction*n) values from each tail and averages
// the rest. With 10 values and fraction 0.2 the two highest and two lowest
// are ignored.
func TrimmedMean(values []float64, fraction float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	trim := int(math.Floor(float64(len(sorted)) * fraction))
	if 2*trim >= len(sorted) {
		trim = (len(sorted) - 1) / 2
	}
	return mean(sorted[trim : len(sorted)-trim])
}

func percentChange(current, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (current - baseline) / baseline * 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
