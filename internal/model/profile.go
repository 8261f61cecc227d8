package model

import (
	"errors"
	"time"
)

// Fitness levels understood by the workout library
const (
	FitnessBeginner     = "beginner"
	FitnessIntermediate = "intermediate"
	FitnessAdvanced     = "advanced"
	FitnessElite        = "elite"
)

// UserTrainingProfile describes the athlete
type UserTrainingProfile struct {
	UserID          string   `json:"userId" yaml:"userId"`
	Age             int      `json:"age" yaml:"age"`
	Sex             string   `json:"sex" yaml:"sex"` // "male", "female"
	RestingHR       float64  `json:"restingHR" yaml:"restingHR"`
	MaxHR           float64  `json:"maxHR" yaml:"maxHR"`
	FitnessLevel    string   `json:"fitnessLevel" yaml:"fitnessLevel"`
	PreferredSports []string `json:"preferredSports" yaml:"preferredSports"`
	TrainingGoals   []string `json:"trainingGoals" yaml:"trainingGoals"`

	AvailableDays []time.Weekday `json:"availableDays" yaml:"availableDays"`
	// PreferredMinutes is the preferred session length per weekday
	PreferredMinutes map[time.Weekday]float64 `json:"preferredMinutes,omitempty" yaml:"preferredMinutes,omitempty"`
}

// Validate checks the fields every entry point relies on
func (p UserTrainingProfile) Validate() error {
	if p.UserID == "" {
		return errors.New("profile user id is required")
	}
	if p.Age < 0 || p.Age > 120 {
		return errors.New("profile age must be between 0 and 120")
	}
	if p.MaxHR > 0 && p.RestingHR >= p.MaxHR {
		return errors.New("profile resting HR must be below max HR")
	}
	return nil
}
