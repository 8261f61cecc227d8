package analysis

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// steadyRecovery returns n daily samples ending at end with the given
// baseline values; last overrides the most recent sample.
func steadyRecovery(end time.Time, n int, base, last model.RecoveryMetricsSample) []model.RecoveryMetricsSample {
	out := make([]model.RecoveryMetricsSample, 0, n)
	for i := n - 1; i >= 0; i-- {
		s := base
		if i == 0 {
			s = last
		}
		s.Date = end.AddDate(0, 0, -i)
		out = append(out, s)
	}
	return out
}

func baselineSample() model.RecoveryMetricsSample {
	return model.RecoveryMetricsSample{
		SleepScore:        floatPtr(85),
		BodyBattery:       floatPtr(80),
		HRV:               floatPtr(60),
		RestingHR:         floatPtr(50),
		SubjectiveFatigue: 3,
	}
}

func TestTrimmedMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{
			name:     "ten values drop two from each tail",
			values:   []float64{100, 1, 2, 3, 4, 5, 6, 7, 8, 9},
			expected: 5.5, // mean of 3..8
		},
		{
			name:     "too few values to trim",
			values:   []float64{4, 6},
			expected: 5,
		},
		{
			name:     "single value",
			values:   []float64{7},
			expected: 7,
		},
		{
			name:     "empty",
			values:   nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimmedMean(tt.values, 0.2)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("TrimmedMean(%v) = %v, want %v", tt.values, got, tt.expected)
			}
		})
	}
}

func TestAnalyzeIndicators_Statuses(t *testing.T) {
	end := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	last := model.RecoveryMetricsSample{
		SleepScore:        floatPtr(75), // below 80 → elevated
		BodyBattery:       floatPtr(25), // below 30 → concerning
		HRV:               floatPtr(50), // -16.7% → critical
		RestingHR:         floatPtr(55), // +10% → critical
		SubjectiveFatigue: 9,            // ≥8 → critical
	}

	indicators, warnings := AnalyzeIndicators(steadyRecovery(end, 10, baselineSample(), last), 0)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	want := map[string]IndicatorStatus{
		MetricHRV:               StatusCritical,
		MetricRestingHR:         StatusCritical,
		MetricBodyBattery:       StatusConcerning,
		MetricSleepScore:        StatusElevated,
		MetricSubjectiveFatigue: StatusCritical,
	}
	if len(indicators) != len(want) {
		t.Fatalf("got %d indicators, want %d", len(indicators), len(want))
	}
	for _, ind := range indicators {
		if ind.Status != want[ind.Metric] {
			t.Errorf("%s status = %v, want %v", ind.Metric, ind.Status, want[ind.Metric])
		}
	}

	hrv := indicators[0]
	if hrv.BaselineValue != 60 || hrv.CurrentValue != 50 {
		t.Errorf("HRV baseline/current = %v/%v, want 60/50", hrv.BaselineValue, hrv.CurrentValue)
	}
	if math.Abs(hrv.PercentChange-(-16.667)) > 0.01 {
		t.Errorf("HRV PercentChange = %v, want -16.67", hrv.PercentChange)
	}

	if got := WorstStatus(indicators); got != StatusCritical {
		t.Errorf("WorstStatus() = %v, want critical", got)
	}
}

func TestAnalyzeIndicators_AllNormal(t *testing.T) {
	end := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	indicators, _ := AnalyzeIndicators(steadyRecovery(end, 10, baselineSample(), baselineSample()), 0)

	for _, ind := range indicators {
		if ind.Status != StatusNormal {
			t.Errorf("%s status = %v, want normal", ind.Metric, ind.Status)
		}
	}
}

func TestAnalyzeIndicators_InsufficientSamples(t *testing.T) {
	end := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	samples := steadyRecovery(end, 5, baselineSample(), baselineSample())

	indicators, warnings := AnalyzeIndicators(samples, 0)

	// HRV and resting HR need 7 samples; body battery and sleep need 5
	if len(indicators) != 3 {
		t.Errorf("got %d indicators, want 3", len(indicators))
	}
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], "HRV") {
		t.Errorf("first warning = %q, want HRV mentioned", warnings[0])
	}
}

func TestAnalyzeIndicators_Empty(t *testing.T) {
	indicators, warnings := AnalyzeIndicators(nil, 28)
	if indicators != nil {
		t.Errorf("expected no indicators, got %v", indicators)
	}
	if len(warnings) != 1 {
		t.Errorf("expected one warning, got %v", warnings)
	}
}

func TestAnalyzeIndicators_WindowUsesMostRecent(t *testing.T) {
	end := time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)
	low := baselineSample()
	low.SubjectiveFatigue = 9
	old := steadyRecovery(end.AddDate(0, 0, -10), 20, low, low)
	recent := steadyRecovery(end, 10, baselineSample(), baselineSample())

	indicators, _ := AnalyzeIndicators(append(old, recent...), 10)
	fatigue := indicators[len(indicators)-1]
	if fatigue.Metric != MetricSubjectiveFatigue {
		t.Fatalf("last indicator = %s, want subjective fatigue", fatigue.Metric)
	}
	if fatigue.BaselineValue != 3 {
		t.Errorf("fatigue baseline = %v, want 3 from the last 10 samples only", fatigue.BaselineValue)
	}
}

func TestIndicatorStatusOrdering(t *testing.T) {
	if !(StatusNormal < StatusElevated && StatusElevated < StatusConcerning && StatusConcerning < StatusCritical) {
		t.Error("indicator statuses are not ordered by severity")
	}
	text, err := StatusConcerning.MarshalText()
	if err != nil || string(text) != "concerning" {
		t.Errorf("MarshalText() = %q, %v", text, err)
	}
}
