package model

import (
	"fmt"
	"sort"
	"time"
)

// RecoveryMetricsSample holds one day of recovery signals.
// Only SubjectiveFatigue is required; devices fill in the rest when available.
type RecoveryMetricsSample struct {
	Date              time.Time `json:"date" yaml:"date"`
	SleepScore        *float64  `json:"sleepScore,omitempty" yaml:"sleepScore,omitempty"`   // 0-100
	BodyBattery       *float64  `json:"bodyBattery,omitempty" yaml:"bodyBattery,omitempty"` // 0-100
	HRV               *float64  `json:"hrv,omitempty" yaml:"hrv,omitempty"`                 // ms
	RestingHR         *float64  `json:"restingHR,omitempty" yaml:"restingHR,omitempty"`     // bpm
	StressLevel       *float64  `json:"stressLevel,omitempty" yaml:"stressLevel,omitempty"` // 0-100
	SubjectiveFatigue float64   `json:"subjectiveFatigue" yaml:"subjectiveFatigue"`         // 1-10
}

// Validate checks value ranges
func (r RecoveryMetricsSample) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: recovery sample has no date", ErrInvalidSample)
	}
	if r.SubjectiveFatigue < 1 || r.SubjectiveFatigue > 10 {
		return fmt.Errorf("%w: subjective fatigue %v on %s must be 1-10", ErrInvalidSample, r.SubjectiveFatigue, DayKey(r.Date))
	}
	for name, v := range map[string]*float64{
		"sleepScore":  r.SleepScore,
		"bodyBattery": r.BodyBattery,
		"stressLevel": r.StressLevel,
	} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%w: %s %v on %s must be 0-100", ErrInvalidSample, name, *v, DayKey(r.Date))
		}
	}
	if r.HRV != nil && *r.HRV <= 0 {
		return fmt.Errorf("%w: hrv must be positive", ErrInvalidSample)
	}
	if r.RestingHR != nil && *r.RestingHR <= 0 {
		return fmt.Errorf("%w: restingHR must be positive", ErrInvalidSample)
	}
	return nil
}

// SortRecovery returns a copy of samples ordered by date ascending
func SortRecovery(samples []RecoveryMetricsSample) []RecoveryMetricsSample {
	sorted := make([]RecoveryMetricsSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// ValidateRecovery validates every sample and reports the first failure
func ValidateRecovery(samples []RecoveryMetricsSample) error {
	for _, s := range samples {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Float returns a pointer to v, for optional metric fields
func Float(v float64) *float64 {
	return &v
}
