package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidSample is returned when an input record fails boundary validation
var ErrInvalidSample = errors.New("invalid sample")

// ActivitySample is a single recorded workout
type ActivitySample struct {
	ID           string    `json:"id" yaml:"id"`
	Date         time.Time `json:"date" yaml:"date"`
	Sport        string    `json:"sport" yaml:"sport"`
	DurationMin  float64   `json:"durationMin" yaml:"durationMin"`
	DistanceKm   float64   `json:"distanceKm" yaml:"distanceKm"`
	TrainingLoad float64   `json:"trainingLoad" yaml:"trainingLoad"` // TRIMP-like units

	AvgHR       *float64  `json:"avgHR,omitempty" yaml:"avgHR,omitempty"`
	MaxHR       *float64  `json:"maxHR,omitempty" yaml:"maxHR,omitempty"`
	ZoneMinutes []float64 `json:"zoneMinutes,omitempty" yaml:"zoneMinutes,omitempty"` // Z1..Z5

	PaceMinPerKm *float64 `json:"paceMinPerKm,omitempty" yaml:"paceMinPerKm,omitempty"`
	PowerWatts   *float64 `json:"powerWatts,omitempty" yaml:"powerWatts,omitempty"`
	SpeedKmh     *float64 `json:"speedKmh,omitempty" yaml:"speedKmh,omitempty"`

	Source string `json:"source,omitempty" yaml:"source,omitempty"` // "strava", "manual"
}

// Validate checks the sample before it reaches the calculation core
func (a ActivitySample) Validate() error {
	if a.Date.IsZero() {
		return fmt.Errorf("%w: activity %q has no date", ErrInvalidSample, a.ID)
	}
	if a.DurationMin < 0 {
		return fmt.Errorf("%w: activity %q has negative duration", ErrInvalidSample, a.ID)
	}
	if a.DistanceKm < 0 {
		return fmt.Errorf("%w: activity %q has negative distance", ErrInvalidSample, a.ID)
	}
	if a.TrainingLoad < 0 {
		return fmt.Errorf("%w: activity %q has negative training load", ErrInvalidSample, a.ID)
	}
	return nil
}

// SortActivities returns a copy of activities ordered by date ascending
func SortActivities(activities []ActivitySample) []ActivitySample {
	sorted := make([]ActivitySample, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// ValidateActivities validates every sample and reports the first failure
func ValidateActivities(activities []ActivitySample) error {
	for _, a := range activities {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}
