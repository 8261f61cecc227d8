package recommend

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/analysis"
	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/workouts"
)

// MaxHistoryDays is the oldest activity accepted relative to the current date
const MaxHistoryDays = 60

var (
	// ErrInvalidRequest is returned when a required field is missing
	ErrInvalidRequest = errors.New("invalid recommendation request")
	// ErrHistoryTooOld is returned when the supplied history reaches too far back
	ErrHistoryTooOld = errors.New("activity history is older than 60 days")
)

// Rand is the randomness source used to pick among candidates.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// NewSeededRand returns a deterministic source for the given seed
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// lockedRand serialises access to a source shared by concurrent callers
type lockedRand struct {
	mu  sync.Mutex
	src Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// Weather describes conditions for the recommended day
type Weather struct {
	Condition       string `json:"condition"`
	OutdoorFriendly bool   `json:"outdoorFriendly"`
}

// Request carries everything the recommender needs
type Request struct {
	UserID      string
	CurrentDate time.Time
	Profile     *model.UserTrainingProfile
	Activities  []model.ActivitySample
	Recovery    []model.RecoveryMetricsSample
	Weather     *Weather
}

// Workout is a concrete recommended session
type Workout struct {
	TemplateID     string   `json:"templateId"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Sport          string   `json:"sport"`
	Description    string   `json:"description"`
	DurationMin    float64  `json:"durationMin"`
	FatigueScore   float64  `json:"fatigueScore"`
	RecoveryImpact string   `json:"recoveryImpact"`
	Tags           []string `json:"tags,omitempty"`
}

// Alternative is a secondary option with the reason it was offered
type Alternative struct {
	Workout Workout `json:"workout"`
	Reason  string  `json:"reason"`
}

// Modification records one contextual tweak to the picked workout
type Modification struct {
	Field  string `json:"field"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// WorkoutRecommendation is the recommender output
type WorkoutRecommendation struct {
	Date               time.Time          `json:"date"`
	RecommendedWorkout Workout            `json:"recommendedWorkout"`
	Confidence         float64            `json:"confidence"`
	Reasoning          []string           `json:"reasoning"`
	Alternatives       []Alternative      `json:"alternatives"`
	Modifications      []Modification     `json:"modifications"`
	Recovery           RecoveryScore      `json:"recovery"`
	TSB                analysis.TSBResult `json:"tsb"`
	Warnings           []string           `json:"warnings,omitempty"`
}

// Recommender picks the next workout from the template library
type Recommender struct {
	lib  workouts.Library
	calc *analysis.Calculator
	rnd  Rand
}

// New creates a recommender. A nil rnd uses an unseeded source.
// The source is guarded so one recommender can serve concurrent calls.
func New(lib workouts.Library, calc *analysis.Calculator, rnd Rand) *Recommender {
	if calc == nil {
		calc = analysis.NewCalculator()
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if _, ok := rnd.(*lockedRand); !ok {
		rnd = &lockedRand{src: rnd}
	}
	return &Recommender{lib: lib, calc: calc, rnd: rnd}
}

// Validate checks the request boundary
func (req Request) Validate() error {
	if req.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if req.CurrentDate.IsZero() {
		return fmt.Errorf("%w: current date is required", ErrInvalidRequest)
	}
	if req.Profile == nil {
		return fmt.Errorf("%w: profile is required", ErrInvalidRequest)
	}
	today := model.Day(req.CurrentDate)
	for _, a := range req.Activities {
		if model.DaysBetween(a.Date, today) > MaxHistoryDays {
			return fmt.Errorf("%w: activity on %s", ErrHistoryTooOld, model.DayKey(a.Date))
		}
	}
	return nil
}

// Recommend picks the workout for the day after CurrentDate
func (r *Recommender) Recommend(req Request) (WorkoutRecommendation, error) {
	if err := req.Validate(); err != nil {
		return WorkoutRecommendation{}, err
	}

	today := model.Day(req.CurrentDate)
	target := model.AddDays(today, 1)

	tsb := r.calc.CalculateTSB(req.Activities, today)
	recovery := ScoreRecovery(recoveryUpTo(req.Recovery, today))

	rec := WorkoutRecommendation{
		Date:     target,
		Recovery: recovery,
		TSB:      tsb,
	}
	if !recovery.HasData {
		rec.Warnings = append(rec.Warnings, "no recovery data supplied; recovery assumed moderate")
	}
	rec.Reasoning = append(rec.Reasoning,
		fmt.Sprintf("Recovery score %.0f (%s) allows %s", recovery.Score, recovery.Status, recovery.Recommendation),
		fmt.Sprintf("Training stress balance %.1f (%s)", tsb.TSB, tsb.Interpretation.Status),
	)

	candidates, notes := r.candidates(recovery.Recommendation, tsb.TSB, req.Profile.PreferredSports)
	rec.Reasoning = append(rec.Reasoning, notes...)

	picked := candidates[r.rnd.IntN(len(candidates))]
	picked = r.lib.AdjustWorkoutForFitnessLevel(picked, req.Profile.FitnessLevel)
	rec.Reasoning = append(rec.Reasoning, fmt.Sprintf("Selected %s from %d candidates", picked.Name, len(candidates)))

	workout := toWorkout(picked)
	workout, rec.Modifications = applyContext(workout, target, req.Weather, req.Profile, recovery.Status)
	for _, m := range rec.Modifications {
		rec.Reasoning = append(rec.Reasoning, m.Reason)
	}
	rec.RecommendedWorkout = workout

	rec.Alternatives = r.alternatives(workout, req.Profile.FitnessLevel)
	rec.Confidence = confidence(tsb, recovery, req.Recovery, len(req.Activities))
	return rec, nil
}

// candidates narrows the library by recovery, TSB band and sport preference
func (r *Recommender) candidates(readiness Readiness, tsb float64, sports []string) ([]workouts.Template, []string) {
	var notes []string
	recoveryIDs := idSet(r.lib.GetRecoveryWorkouts())

	var pool []workouts.Template
	switch readiness {
	case RestDay:
		pool = r.lib.GetRecoveryWorkouts()
	case EasyTraining:
		pool = append(r.lib.GetRecoveryWorkouts(), r.lib.GetEasyWorkouts()...)
	case ModerateTraining:
		pool = keep(r.lib.All(), func(t workouts.Template) bool { return t.FatigueScore <= 75 })
	default:
		pool = r.lib.All()
	}

	switch {
	case tsb < -30:
		pool = keep(pool, func(t workouts.Template) bool { return recoveryIDs[t.ID] })
		notes = append(notes, "Very negative training stress balance limits options to recovery work")
	case tsb < -10:
		pool = keep(pool, func(t workouts.Template) bool { return t.FatigueScore <= 70 })
		notes = append(notes, "Negative training stress balance caps workout fatigue at 70")
	}

	if len(sports) > 0 {
		preferred := keep(pool, func(t workouts.Template) bool { return matchesSport(t, sports) })
		if len(preferred) > 0 {
			pool = preferred
		}
	}

	if len(pool) == 0 {
		pool = r.lib.GetRecoveryWorkouts()
		notes = append(notes, "No workout fits the current constraints; falling back to recovery")
	}
	return pool, notes
}

func matchesSport(t workouts.Template, sports []string) bool {
	sport := strings.ToLower(t.Sport)
	name := strings.ToLower(t.Name)
	for _, s := range sports {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if strings.Contains(sport, s) || strings.Contains(name, s) || (sport != "" && strings.Contains(s, sport)) {
			return true
		}
	}
	return false
}

func confidence(tsb analysis.TSBResult, recovery RecoveryScore, samples []model.RecoveryMetricsSample, activityCount int) float64 {
	c := 100.0
	switch tsb.DataQuality {
	case "poor":
		c -= 30
	case "fair":
		c -= 15
	}
	switch {
	case len(samples) == 0:
		c -= 20
	case len(samples) < 5:
		c -= 10
	}
	switch {
	case activityCount < 7:
		c -= 20
	case activityCount < 14:
		c -= 10
	}
	if (tsb.TSB < -10 && recovery.Recommendation == FullTraining) ||
		(tsb.TSB > 5 && recovery.Recommendation == RestDay) {
		c -= 15
	}
	if tsb.Interpretation.OptimalTrainingWindow && recovery.Recommendation == FullTraining {
		c += 10
	}
	return max(30, min(100, c))
}

func recoveryUpTo(samples []model.RecoveryMetricsSample, day time.Time) []model.RecoveryMetricsSample {
	var out []model.RecoveryMetricsSample
	for _, s := range samples {
		if !model.Day(s.Date).After(day) {
			out = append(out, s)
		}
	}
	return out
}

func toWorkout(t workouts.Template) Workout {
	return Workout{
		TemplateID:     t.ID,
		Name:           t.Name,
		Type:           t.Type,
		Sport:          t.Sport,
		Description:    t.Description,
		DurationMin:    t.DurationMin,
		FatigueScore:   t.FatigueScore,
		RecoveryImpact: t.RecoveryImpact,
		Tags:           append([]string(nil), t.Tags...),
	}
}

func keep(in []workouts.Template, pred func(workouts.Template) bool) []workouts.Template {
	var out []workouts.Template
	for _, t := range in {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

func idSet(in []workouts.Template) map[string]bool {
	set := make(map[string]bool, len(in))
	for _, t := range in {
		set[t.ID] = true
	}
	return set
}
