package recommend

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/workouts"
)

const (
	weatherScale        = 0.8
	weatherFloorMin     = 30.0
	preferenceGapMin    = 15.0
	preferenceMaxScale  = 1.2
	poorRecoveryFatigue = 0.6
	maxAlternatives     = 3
)

var (
	hardWords      = regexp.MustCompile(`(?i)\b(hard|intense)\b`)
	thresholdWords = regexp.MustCompile(`(?i)\b(threshold|intervals)\b`)
	outdoorWord    = regexp.MustCompile(`(?i)\boutdoor\b`)
)

// applyContext adjusts the picked workout for weather, the athlete's
// preferred session length on that weekday and poor recovery.
func applyContext(w Workout, day time.Time, weather *Weather, profile *model.UserTrainingProfile, status RecoveryStatus) (Workout, []Modification) {
	var mods []Modification

	if weather != nil && !weather.OutdoorFriendly && isOutdoorSport(w.Sport) {
		from := w.DurationMin
		to := math.Round(from * weatherScale)
		if to < weatherFloorMin {
			to = math.Min(from, weatherFloorMin)
		}
		w.DurationMin = to
		w.Description = outdoorWord.ReplaceAllString(w.Description, "indoor")
		mods = append(mods, Modification{
			Field:  "durationMin",
			From:   formatMinutes(from),
			To:     formatMinutes(to),
			Reason: fmt.Sprintf("Weather (%s) moves the session indoors and shortens it", describeWeather(weather)),
		})
	}

	if pref := profile.PreferredMinutes[day.Weekday()]; pref > 0 && math.Abs(pref-w.DurationMin) > preferenceGapMin {
		from := w.DurationMin
		to := math.Round(from + (pref-from)/2)
		to = math.Min(to, math.Round(from*preferenceMaxScale))
		if to != from {
			w.DurationMin = to
			mods = append(mods, Modification{
				Field:  "durationMin",
				From:   formatMinutes(from),
				To:     formatMinutes(to),
				Reason: fmt.Sprintf("Nudged toward the preferred %s session of %.0f min", day.Weekday(), pref),
			})
		}
	}

	if status == RecoveryPoor {
		from := w.FatigueScore
		w.FatigueScore = math.Round(from * poorRecoveryFatigue)
		w.Description = thresholdWords.ReplaceAllString(hardWords.ReplaceAllString(w.Description, "easy"), "conversational pace")
		mods = append(mods, Modification{
			Field:  "fatigueScore",
			From:   fmt.Sprintf("%.0f", from),
			To:     fmt.Sprintf("%.0f", w.FatigueScore),
			Reason: "Poor recovery lowers the session intensity",
		})
	}

	return w, mods
}

func isOutdoorSport(sport string) bool {
	s := strings.ToLower(sport)
	return strings.Contains(s, "run") || strings.Contains(s, "bike") || strings.Contains(s, "ride") || strings.Contains(s, "cycl")
}

func describeWeather(w *Weather) string {
	if w.Condition == "" {
		return "not outdoor friendly"
	}
	return w.Condition
}

func formatMinutes(m float64) string {
	return fmt.Sprintf("%.0f min", m)
}

// alternatives offers up to three options: the nearest-intensity session in
// another sport, a same-sport session with different tags and a restorative
// session.
func (r *Recommender) alternatives(chosen Workout, level string) []Alternative {
	all := r.lib.All()
	used := map[string]bool{chosen.TemplateID: true}
	var alts []Alternative

	add := func(t *workouts.Template, reason string) {
		if t == nil || used[t.ID] || len(alts) >= maxAlternatives {
			return
		}
		used[t.ID] = true
		alts = append(alts, Alternative{Workout: toWorkout(r.lib.AdjustWorkoutForFitnessLevel(*t, level)), Reason: reason})
	}

	add(nearest(all, chosen.FatigueScore, func(t workouts.Template) bool {
		return !used[t.ID] && !strings.EqualFold(t.Sport, chosen.Sport)
	}), "Similar intensity in a different sport")

	add(nearest(all, chosen.FatigueScore, func(t workouts.Template) bool {
		return !used[t.ID] && strings.EqualFold(t.Sport, chosen.Sport) && !sameTags(t.Tags, chosen.Tags)
	}), "Same sport with a different focus")

	for _, t := range r.lib.GetRecoveryWorkouts() {
		if !used[t.ID] {
			add(&t, "Restorative option if you feel worse than expected")
			break
		}
	}
	return alts
}

func nearest(all []workouts.Template, fatigue float64, ok func(workouts.Template) bool) *workouts.Template {
	var best *workouts.Template
	bestGap := math.Inf(1)
	for i := range all {
		if !ok(all[i]) {
			continue
		}
		if gap := math.Abs(all[i].FatigueScore - fatigue); gap < bestGap {
			best, bestGap = &all[i], gap
		}
	}
	return best
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[strings.ToLower(t)] = true
	}
	for _, t := range b {
		if !set[strings.ToLower(t)] {
			return false
		}
	}
	return true
}
