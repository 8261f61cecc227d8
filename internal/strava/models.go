package strava

import "time"

// Activity represents a Strava activity summary from the API
type Activity struct {
	ID               int64     `json:"id"`
	Athlete          Athlete   `json:"athlete"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	SportType        string    `json:"sport_type"`
	StartDate        time.Time `json:"start_date"`
	Distance         float64   `json:"distance"`          // meters
	MovingTime       int       `json:"moving_time"`       // seconds
	ElapsedTime      int       `json:"elapsed_time"`      // seconds
	AverageSpeed     float64   `json:"average_speed"`     // m/s
	AverageHeartrate float64   `json:"average_heartrate"` // bpm
	MaxHeartrate     float64   `json:"max_heartrate"`     // bpm
	AverageWatts     float64   `json:"average_watts"`
	SufferScore      int       `json:"suffer_score"`
	HasHeartrate     bool      `json:"has_heartrate"`
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// Sport maps Strava's type onto the sports used by the workout catalog
func (a Activity) Sport() string {
	t := a.SportType
	if t == "" {
		t = a.Type
	}
	switch t {
	case "Run", "TrailRun", "VirtualRun":
		return "running"
	case "Ride", "VirtualRide", "GravelRide", "MountainBikeRide", "EBikeRide":
		return "cycling"
	case "Swim":
		return "swimming"
	case "WeightTraining", "Crossfit", "Workout":
		return "strength"
	case "Walk", "Hike":
		return "walking"
	case "Yoga", "Pilates":
		return "yoga"
	default:
		return "other"
	}
}

// DurationMin is the moving time in minutes
func (a Activity) DurationMin() float64 {
	return float64(a.MovingTime) / 60
}
