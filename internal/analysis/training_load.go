package analysis

import (
	"math"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// Window sizes and the optimal TSB band
const (
	AcuteWindowDays   = 7
	ChronicWindowDays = 28

	OptimalTSBLow  = -5.0
	OptimalTSBHigh = 15.0

	maxProjectionWeeks = 12
)

// HRZones represents athlete's heart rate zones
type HRZones struct {
	RestingHR float64
	MaxHR     float64
}

// DefaultZones returns sensible defaults if not configured
func DefaultZones() HRZones {
	return HRZones{
		RestingHR: 50,
		MaxHR:     185,
	}
}

// ZonesFromProfile uses the profile's HR values, falling back to defaults
func ZonesFromProfile(p model.UserTrainingProfile) HRZones {
	z := DefaultZones()
	if p.RestingHR > 0 {
		z.RestingHR = p.RestingHR
	}
	if p.MaxHR > 0 {
		z.MaxHR = p.MaxHR
	}
	return z
}

// TRIMP calculates Training Impulse (Banister model)
// TRIMP = duration (min) * ΔHR ratio * e^(b * ΔHR ratio)
// where b = 1.92 for men, 1.67 for women
func TRIMP(durationMin, avgHR float64, zones HRZones, sex string) float64 {
	if avgHR <= 0 || durationMin <= 0 {
		return 0
	}

	hrReserve := zones.MaxHR - zones.RestingHR
	if hrReserve <= 0 {
		return 0
	}

	hrRatio := clamp((avgHR-zones.RestingHR)/hrReserve, 0, 1)

	b := 1.92
	if sex == "female" {
		b = 1.67
	}

	return durationMin * hrRatio * math.Exp(b*hrRatio)
}

// zoneLoadWeights scores one minute in each HR zone (Edwards TRIMP)
var zoneLoadWeights = []float64{1, 2, 3, 4, 5}

// EstimateLoad returns the sample's training load, deriving one when the
// ingestion source did not supply it. Order: recorded load, HR TRIMP,
// zone minutes, then a flat one unit per minute.
func EstimateLoad(a model.ActivitySample, zones HRZones, sex string) float64 {
	if a.TrainingLoad > 0 {
		return a.TrainingLoad
	}
	if a.AvgHR != nil {
		if trimp := TRIMP(a.DurationMin, *a.AvgHR, zones, sex); trimp > 0 {
			return trimp
		}
	}
	if len(a.ZoneMinutes) > 0 {
		var load float64
		for i, minutes := range a.ZoneMinutes {
			if i >= len(zoneLoadWeights) {
				break
			}
			load += minutes * zoneLoadWeights[i]
		}
		if load > 0 {
			return load
		}
	}
	return a.DurationMin
}

// DailyLoads sums training load per ISO day. Multiple activities on the
// same day add up.
func DailyLoads(activities []model.ActivitySample) map[string]float64 {
	loads := make(map[string]float64, len(activities))
	for _, a := range activities {
		loads[model.DayKey(a.Date)] += a.TrainingLoad
	}
	return loads
}

// DailyLoadSeries returns the summed load for each of the n days ending at
// end, oldest first. Missing days are zero.
func DailyLoadSeries(activities []model.ActivitySample, end time.Time, n int) []float64 {
	loads := DailyLoads(activities)
	series := make([]float64, n)
	for i := range series {
		series[i] = loads[model.DayKey(model.AddDays(end, i-n+1))]
	}
	return series
}

// Interpretation explains a TSB value
type Interpretation struct {
	Status                string `json:"status"`
	Description           string `json:"description"`
	Recommendation        string `json:"recommendation"`
	OptimalTrainingWindow bool   `json:"optimalTrainingWindow"`
}

// Direction of a load trend
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// TrendPoint is the load snapshot at one weekly anchor
type TrendPoint struct {
	Date time.Time `json:"date"`
	ATL  float64   `json:"atl"`
	CTL  float64   `json:"ctl"`
	TSB  float64   `json:"tsb"`
}

// LoadTrend summarises the last four weekly anchors
type LoadTrend struct {
	Points []TrendPoint `json:"points"`

	Acute   Direction `json:"acute"`
	Chronic Direction `json:"chronic"`
	Balance Direction `json:"balance"`

	AcuteSlope   float64 `json:"acuteSlope"`
	ChronicSlope float64 `json:"chronicSlope"`
	BalanceSlope float64 `json:"balanceSlope"`

	// WeeksToOptimal is 0 when TSB is already inside the optimal band
	WeeksToOptimal int    `json:"weeksToOptimal"`
	Projection     string `json:"projection"`
}

// TSBResult is the training stress balance for one day
type TSBResult struct {
	Date        time.Time `json:"date"`
	AcuteLoad   float64   `json:"acuteLoad"`   // ATL
	ChronicLoad float64   `json:"chronicLoad"` // CTL
	TSB         float64   `json:"tsb"`         // CTL - ATL

	Fitness float64 `json:"fitness"`
	Fatigue float64 `json:"fatigue"`
	Form    float64 `json:"form"`

	Interpretation Interpretation `json:"interpretation"`
	Trend          LoadTrend      `json:"trend"`

	DataQuality string  `json:"dataQuality"`
	SampleCount int     `json:"sampleCount"`
	Confidence  float64 `json:"confidence"`
}

// Calculator computes ATL/CTL/TSB. The clock only supplies "today" when no
// target date is given; the decay weighting is anchored to the target date.
type Calculator struct {
	now func() time.Time
}

// NewCalculator creates a calculator using the wall clock
func NewCalculator() *Calculator {
	return &Calculator{now: time.Now}
}

// NewCalculatorWithClock creates a calculator with a pinned clock
func NewCalculatorWithClock(now func() time.Time) *Calculator {
	return &Calculator{now: now}
}

// Today returns the calculator's current day
func (c *Calculator) Today() time.Time {
	return model.Day(c.now())
}

// CalculateTSB computes the training stress balance at targetDate.
// A zero targetDate means today.
func (c *Calculator) CalculateTSB(activities []model.ActivitySample, targetDate time.Time) TSBResult {
	if targetDate.IsZero() {
		targetDate = c.now()
	}
	target := model.Day(targetDate)
	loads := DailyLoads(activities)

	atl, ctl := loadsAt(loads, target)
	tsb := ctl - atl

	count := countInWindow(activities, target, ChronicWindowDays)

	result := TSBResult{
		Date:           target,
		AcuteLoad:      atl,
		ChronicLoad:    ctl,
		TSB:            tsb,
		Fitness:        clamp(ctl/5, 0, 100),
		Fatigue:        clamp(atl/3, 0, 100),
		Form:           clamp(50+tsb/2, 0, 100),
		Interpretation: InterpretTSB(tsb),
		DataQuality:    DataQuality(count),
		SampleCount:    count,
		Confidence:     math.Min(100, float64(count)/20*100),
	}
	result.Trend = loadTrend(loads, target, tsb)
	return result
}

// InterpretTSB maps a TSB value onto its band
func InterpretTSB(tsb float64) Interpretation {
	switch {
	case tsb > 25:
		return Interpretation{
			Status:                "peak-form",
			Description:           "Very fresh: fatigue has cleared well below fitness",
			Recommendation:        "Race or attempt a key session; extended rest beyond this risks detraining",
			OptimalTrainingWindow: true,
		}
	case tsb > 5:
		return Interpretation{
			Status:                "good-form",
			Description:           "Fresh and carrying fitness",
			Recommendation:        "Good window for quality work or a hard session",
			OptimalTrainingWindow: true,
		}
	case tsb > -10:
		return Interpretation{
			Status:         "neutral",
			Description:    "Fatigue and fitness are balanced",
			Recommendation: "Continue normal training",
		}
	case tsb > -30:
		return Interpretation{
			Status:         "building",
			Description:    "Productive fatigue from recent training",
			Recommendation: "Keep building but schedule an easier day within the week",
		}
	case tsb > -50:
		return Interpretation{
			Status:         "overreaching",
			Description:    "Acute load is well above what the athlete is adapted to",
			Recommendation: "Reduce volume and intensity for several days",
		}
	default:
		return Interpretation{
			Status:         "overtrained",
			Description:    "Very high fatigue relative to fitness",
			Recommendation: "Rest; resume with easy sessions only once recovery markers improve",
		}
	}
}

// DataQuality grades the number of activities in the chronic window
func DataQuality(count int) string {
	switch {
	case count >= 20:
		return "excellent"
	case count >= 12:
		return "good"
	case count >= 6:
		return "fair"
	default:
		return "poor"
	}
}

// loadsAt returns ATL and CTL at anchor
func loadsAt(loads map[string]float64, anchor time.Time) (atl, ctl float64) {
	return weightedLoad(loads, anchor, AcuteWindowDays), weightedLoad(loads, anchor, ChronicWindowDays)
}

// weightedLoad is the exponentially time-weighted mean of daily load over
// the window ending at anchor. Days without activity count as zero.
// Weight = exp(-daysAgo / tau), tau = window / ln 2 (half-life of one window).
func weightedLoad(loads map[string]float64, anchor time.Time, window int) float64 {
	tau := float64(window) / math.Ln2

	var weighted, weights float64
	for d := 0; d < window; d++ {
		w := math.Exp(-float64(d) / tau)
		weighted += w * loads[model.DayKey(model.AddDays(anchor, -d))]
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return weighted / weights
}

func countInWindow(activities []model.ActivitySample, anchor time.Time, window int) int {
	count := 0
	for _, a := range activities {
		ago := model.DaysBetween(a.Date, anchor)
		if ago >= 0 && ago < window {
			count++
		}
	}
	return count
}

func loadTrend(loads map[string]float64, target time.Time, tsb float64) LoadTrend {
	points := make([]TrendPoint, 0, 4)
	for week := 3; week >= 0; week-- {
		anchor := model.AddDays(target, -7*week)
		atl, ctl := loadsAt(loads, anchor)
		points = append(points, TrendPoint{Date: anchor, ATL: atl, CTL: ctl, TSB: ctl - atl})
	}

	var atls, ctls, tsbs []float64
	for _, p := range points {
		atls = append(atls, p.ATL)
		ctls = append(ctls, p.CTL)
		tsbs = append(tsbs, p.TSB)
	}

	trend := LoadTrend{
		Points:       points,
		AcuteSlope:   Slope(atls[1:]),
		ChronicSlope: Slope(ctls),
		BalanceSlope: Slope(tsbs[1:]),
	}
	trend.Acute = direction(trend.AcuteSlope, 0.1)
	trend.Balance = direction(trend.BalanceSlope, 0.1)
	trend.Chronic = direction(trend.ChronicSlope, 0.05)

	trend.WeeksToOptimal, trend.Projection = projectToOptimal(tsb, trend.BalanceSlope)
	return trend
}

// projectToOptimal estimates weeks until TSB re-enters the optimal band.
// The slope is TSB change per week.
func projectToOptimal(tsb, slope float64) (int, string) {
	switch {
	case tsb < OptimalTSBLow:
		weeks := 3
		if slope > 0 {
			weeks = int(math.Ceil((OptimalTSBLow - tsb) / slope))
		}
		weeks = min(max(weeks, 1), maxProjectionWeeks)
		return weeks, "fatigue is above the optimal band; form should recover as load eases"
	case tsb > OptimalTSBHigh:
		weeks := 2
		if slope < 0 {
			weeks = int(math.Ceil((tsb - OptimalTSBHigh) / -slope))
		}
		weeks = min(max(weeks, 1), maxProjectionWeeks)
		return weeks, "very fresh; added load will bring form back into the optimal band"
	default:
		return 0, "within the optimal band"
	}
}

func direction(slope, deadBand float64) Direction {
	switch {
	case slope > deadBand:
		return DirectionIncreasing
	case slope < -deadBand:
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

// Slope is the least-squares slope of values against their index
func Slope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
