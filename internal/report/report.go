package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"github.com/davidjes1/trAIn-sub002/internal/analysis"
	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/plan"
	"github.com/davidjes1/trAIn-sub002/internal/service"
)

// Briefing renders the daily briefing. now anchors relative dates.
func Briefing(b *service.Briefing, now time.Time) string {
	header := fmt.Sprintf("Daily briefing · %s", b.Date.Format("Mon Jan 2"))
	if b.Cached {
		header += " (cached " + humanize.RelTime(b.GeneratedAt, now, "ago", "from now") + ")"
	}
	sections := []string{headerStyle.Render(header)}

	var top []string
	if b.Readiness != nil {
		top = append(top, readinessCard(b.Readiness, now))
	}
	top = append(top, adviceCard(b))
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, joinGap(top)...))

	if b.Overtraining != nil && len(b.Overtraining.Markers) > 0 {
		sections = append(sections, card("Overtraining screen",
			append([]string{metric("Severity", b.Overtraining.Severity)},
				bullets(b.Overtraining.Markers, warningStyle)...)...))
	}

	if b.PlannedToday != nil {
		sections = append(sections, card("Planned today", workoutLine(*b.PlannedToday)))
	}

	if chart := LoadChart(b.DailyLoads); chart != "" {
		sections = append(sections, card(fmt.Sprintf("Training load, last %d days", len(b.DailyLoads)), chart))
	}

	if len(b.Warnings) > 0 {
		sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, bullets(b.Warnings, mutedStyle)...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func readinessCard(r *analysis.ReadinessAssessment, now time.Time) string {
	lines := []string{
		metric("Readiness", severity(statusLevel(r.OverallStatus), fmt.Sprintf("%.0f/100 %s", r.Score, r.OverallStatus))),
		metric("Risk", string(r.RiskLevel)),
		metric("Advice", string(r.Recommendation)),
		metric("Form (TSB)", fmt.Sprintf("%+.1f", r.TSB.TSB)),
		metric("Fitness / fatigue", fmt.Sprintf("%.0f / %.0f", r.TSB.ChronicLoad, r.TSB.AcuteLoad)),
		metric("Trend", string(r.Trend.Direction)),
		metric("Reassess", humanize.RelTime(r.NextReassessment, now, "ago", "from now")),
	}
	if len(r.Indicators) > 0 {
		worst := analysis.WorstStatus(r.Indicators)
		lines = append(lines, metric("Indicators", severity(indicatorLevel(worst), worst.String())))
	}
	for _, ind := range r.Indicators {
		if ind.Status == analysis.StatusNormal {
			continue
		}
		lines = append(lines, severity(indicatorLevel(ind.Status), fmt.Sprintf("%s %s (%+.0f%%)", ind.Metric, ind.Status, ind.PercentChange)))
	}
	return card("Readiness", lines...)
}

func adviceCard(b *service.Briefing) string {
	if b.Recommendation == nil {
		return card("Tomorrow", warningStyle.Render(b.Advice))
	}
	rec := b.Recommendation
	w := rec.RecommendedWorkout
	lines := []string{
		metric("Workout", w.Name),
		metric("Duration", fmt.Sprintf("%.0f min", w.DurationMin)),
		metric("Fatigue", fmt.Sprintf("%.0f", w.FatigueScore)),
		metric("Confidence", fmt.Sprintf("%.0f%%", rec.Confidence)),
		metric("Recovery", fmt.Sprintf("%.0f %s", rec.Recovery.Score, rec.Recovery.Status)),
	}
	if len(rec.Alternatives) > 0 {
		names := make([]string, 0, len(rec.Alternatives))
		for _, a := range rec.Alternatives {
			names = append(names, a.Workout.Name)
		}
		lines = append(lines, mutedStyle.Render("or: "+strings.Join(names, ", ")))
	}
	return card("Tomorrow", lines...)
}

func indicatorLevel(s analysis.IndicatorStatus) int {
	return int(min(s, 2))
}

func statusLevel(s analysis.OverallStatus) int {
	switch s {
	case analysis.StatusFresh, analysis.StatusNormalReady:
		return 0
	case analysis.StatusFatigued:
		return 1
	default:
		return 2
	}
}

// LoadChart plots a daily load series. Fewer than three points render
// nothing.
func LoadChart(loads []float64) string {
	if len(loads) < 3 {
		return ""
	}
	return asciigraph.Plot(loads,
		asciigraph.Height(6),
		asciigraph.Width(len(loads)*2),
		asciigraph.Precision(0),
	)
}

// Plan renders a plan as a table, one row per day
func Plan(p model.Plan, now time.Time) string {
	title := fmt.Sprintf("Plan %s · %d days", shortID(p.ID), len(p.Workouts))
	if len(p.Workouts) == 0 {
		return card(title, mutedStyle.Render("No workouts"))
	}
	rows := []string{mutedStyle.Render(fmt.Sprintf("%-10s  %-12s  %-9s  %5s  %4s  %s", "Date", "When", "Type", "Min", "Fat", "Description"))}
	for _, w := range p.Workouts {
		rows = append(rows, fmt.Sprintf("%-10s  %-12s  %s",
			model.DayKey(w.Date),
			relDay(w.Date, now),
			workoutLine(w)))
	}
	rows = append(rows, "", metric("Total fatigue", fmt.Sprintf("%.0f", p.TotalFatigue())),
		metric("Total time", fmt.Sprintf("%.0f min", p.TotalDuration())))
	return card(title, rows...)
}

func workoutLine(w model.PlannedWorkout) string {
	line := fmt.Sprintf("%-9s  %5.0f  %4.0f  %s", w.WorkoutType, w.DurationMin, w.ExpectedFatigue, w.Description)
	switch {
	case w.IsRest():
		return mutedStyle.Render(line)
	case w.ExpectedFatigue >= 70:
		return warningStyle.Render(line)
	}
	return line
}

// PlanChange renders the outcome of a single-day plan modification
func PlanChange(r service.PlanChangeResult, now time.Time) string {
	switch {
	case r.NotFound:
		return warningStyle.Render(r.Error)
	case !r.Success:
		return errorStyle.Render("Plan change failed: " + r.Error)
	}
	sections := []string{changeCard(r)}
	if r.AdjustedPlan != nil {
		sections = append(sections, Plan(*r.AdjustedPlan, now))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Adjustment renders a life-event adjustment with its alternatives
func Adjustment(r service.AdjustmentEnvelope, now time.Time) string {
	if !r.Success || r.NotFound {
		return PlanChange(r.PlanChangeResult, now)
	}
	sections := []string{PlanChange(r.PlanChangeResult, now)}

	lines := []string{metric("Confidence", fmt.Sprintf("%.0f%%", r.Confidence))}
	for _, alt := range r.Alternatives {
		lines = append(lines, fmt.Sprintf("%-14s %3.0f%%  %s", alt.Name, alt.Suitability, mutedStyle.Render(alt.Tradeoffs)))
	}
	sections = append(sections, card("Alternatives", lines...))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func changeCard(r service.PlanChangeResult) string {
	lines := []string{
		metric("Days affected", humanize.Comma(int64(r.ImpactSummary.DaysAffected))),
		metric("Load change", fmt.Sprintf("%+.0f", r.ImpactSummary.LoadChange)),
		metric("Volume change", fmt.Sprintf("%+.0f min", r.ImpactSummary.VolumeChangeMin)),
	}
	for _, m := range r.Modifications {
		lines = append(lines, modificationLine(m))
	}
	lines = append(lines, bullets(r.Warnings, warningStyle)...)
	lines = append(lines, bullets(r.Recommendations, goodStyle)...)
	return card("Changes", lines...)
}

func modificationLine(m plan.Modification) string {
	from, to := "-", "-"
	if m.Original != nil {
		from = fmt.Sprintf("%s %.0f", m.Original.WorkoutType, m.Original.ExpectedFatigue)
	}
	if m.Updated != nil {
		to = fmt.Sprintf("%s %.0f", m.Updated.WorkoutType, m.Updated.ExpectedFatigue)
	}
	return fmt.Sprintf("%s  %-10s %s -> %s  %s", model.DayKey(m.Date), m.Action, from, to, mutedStyle.Render(m.Reason))
}

func relDay(d, now time.Time) string {
	switch model.DaysBetween(model.Day(now), d) {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	case -1:
		return "yesterday"
	}
	return humanize.RelTime(d, model.Day(now), "ago", "from now")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinGap(blocks []string) []string {
	out := make([]string, 0, len(blocks)*2)
	for i, b := range blocks {
		if i > 0 {
			out = append(out, "  ")
		}
		out = append(out, b)
	}
	return out
}
