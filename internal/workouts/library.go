package workouts

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Template types
const (
	TypeRecovery  = "recovery"
	TypeEasy      = "easy"
	TypeEndurance = "endurance"
	TypeTempo     = "tempo"
	TypeIntervals = "intervals"
	TypeStrength  = "strength"
	TypeRacePace  = "race-pace"
)

// Recovery impact values
const (
	ImpactRestorative = "restorative"
	ImpactLow         = "low"
	ImpactModerate    = "moderate"
	ImpactHigh        = "high"
)

// Template is a candidate workout
type Template struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Type           string   `yaml:"type" json:"type"`
	Sport          string   `yaml:"sport" json:"sport"`
	Description    string   `yaml:"description" json:"description"`
	DurationMin    float64  `yaml:"duration_min" json:"durationMin"`
	FatigueScore   float64  `yaml:"fatigue_score" json:"fatigueScore"`
	RecoveryImpact string   `yaml:"recovery_impact" json:"recoveryImpact"`
	Tags           []string `yaml:"tags" json:"tags,omitempty"`
}

// HasTag reports whether the template carries tag
func (t Template) HasTag(tag string) bool {
	for _, x := range t.Tags {
		if strings.EqualFold(x, tag) {
			return true
		}
	}
	return false
}

// Library is the workout template catalog consumed by the recommender and
// the plan rebalancer.
type Library interface {
	All() []Template
	GetRecoveryWorkouts() []Template
	GetEasyWorkouts() []Template
	GetWorkoutsByType(workoutType string) []Template
	AdjustWorkoutForFitnessLevel(t Template, level string) Template
}

// Catalog is a Library backed by an in-memory template list
type Catalog struct {
	templates []Template
}

type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultLibrary returns the catalog embedded in the binary
func DefaultLibrary() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embeddedCatalog)
		if err != nil {
			panic(fmt.Sprintf("embedded workout catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFile reads a catalog from a YAML file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return NewCatalog(file.Templates)
}

// NewCatalog validates templates and builds a catalog
func NewCatalog(templates []Template) (*Catalog, error) {
	seen := make(map[string]bool, len(templates))
	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template %q has no id", t.Name)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		seen[t.ID] = true
		if t.FatigueScore < 0 || t.FatigueScore > 100 {
			return nil, fmt.Errorf("template %q: fatigue score %.0f outside 0-100", t.ID, t.FatigueScore)
		}
		if t.DurationMin <= 0 {
			return nil, fmt.Errorf("template %q: duration must be positive", t.ID)
		}
	}
	if !hasType(templates, TypeRecovery) {
		return nil, fmt.Errorf("catalog needs at least one %s template", TypeRecovery)
	}
	return &Catalog{templates: copyTemplates(templates)}, nil
}

func hasType(templates []Template, workoutType string) bool {
	for _, t := range templates {
		if t.Type == workoutType {
			return true
		}
	}
	return false
}

// All returns every template
func (c *Catalog) All() []Template {
	return copyTemplates(c.templates)
}

// GetRecoveryWorkouts returns the restorative templates
func (c *Catalog) GetRecoveryWorkouts() []Template {
	return c.filter(func(t Template) bool {
		return t.Type == TypeRecovery || t.RecoveryImpact == ImpactRestorative
	})
}

// GetEasyWorkouts returns low-stress aerobic templates
func (c *Catalog) GetEasyWorkouts() []Template {
	return c.filter(func(t Template) bool { return t.Type == TypeEasy })
}

// GetWorkoutsByType returns templates of the given type
func (c *Catalog) GetWorkoutsByType(workoutType string) []Template {
	return c.filter(func(t Template) bool { return strings.EqualFold(t.Type, workoutType) })
}

func (c *Catalog) filter(keep func(Template) bool) []Template {
	var out []Template
	for _, t := range c.templates {
		if keep(t) {
			out = append(out, cloneTemplate(t))
		}
	}
	return out
}

type levelScale struct {
	duration, fatigue float64
}

var levelScales = map[string]levelScale{
	model.FitnessBeginner: {duration: 0.75, fatigue: 0.85},
	model.FitnessAdvanced: {duration: 1.15, fatigue: 1.1},
	model.FitnessElite:    {duration: 1.25, fatigue: 1.15},
}

// AdjustWorkoutForFitnessLevel scales duration and fatigue for the athlete's
// level. Intermediate and unknown levels are returned unchanged. Fatigue is
// capped at 100.
func (c *Catalog) AdjustWorkoutForFitnessLevel(t Template, level string) Template {
	out := cloneTemplate(t)
	scale, ok := levelScales[level]
	if !ok {
		return out
	}
	out.DurationMin = math.Round(t.DurationMin * scale.duration)
	out.FatigueScore = math.Min(100, math.Round(t.FatigueScore*scale.fatigue))
	return out
}

// ToPlanned copies a template into base, keeping its date and zone target
func ToPlanned(t Template, base model.PlannedWorkout) model.PlannedWorkout {
	base.WorkoutType = t.Type
	base.Description = t.Description
	base.ExpectedFatigue = t.FatigueScore
	base.DurationMin = t.DurationMin
	base.Sport = t.Sport
	base.Tags = append([]string(nil), t.Tags...)
	return base
}

func cloneTemplate(t Template) Template {
	t.Tags = append([]string(nil), t.Tags...)
	return t
}

func copyTemplates(in []Template) []Template {
	out := make([]Template, len(in))
	for i, t := range in {
		out[i] = cloneTemplate(t)
	}
	return out
}
