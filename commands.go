package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/plan"
	"github.com/davidjes1/trAIn-sub002/internal/report"
	"github.com/davidjes1/trAIn-sub002/internal/scheduler"
	"github.com/davidjes1/trAIn-sub002/internal/service"
	"github.com/davidjes1/trAIn-sub002/internal/store"
	"github.com/davidjes1/trAIn-sub002/internal/tui"
)

func (a *app) syncService(ctx context.Context) (*service.SyncService, error) {
	client, err := a.stravaClient(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewSyncService(client, a.db, a.cache, a.profile, time.Now, a.logger), nil
}

func (a *app) sync(ctx context.Context) error {
	svc, err := a.syncService(ctx)
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(tui.NewSyncModel(ctx, svc), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	m, ok := final.(tui.SyncModel)
	if !ok {
		return tui.ErrInterrupted
	}
	_, err = m.Result()
	return err
}

func (a *app) briefing(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("briefing", flag.ContinueOnError)
	date := fs.String("date", "", "day to brief (YYYY-MM-DD, default today)")
	asJSON := fs.Bool("json", false, "print JSON instead of the report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	day, err := parseDate(*date)
	if err != nil {
		return err
	}
	b, err := a.briefings.Daily(ctx, a.profile.UserID, day)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(b)
	}
	fmt.Println(report.Briefing(b, time.Now()))
	return nil
}

func (a *app) recovery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recovery", flag.ContinueOnError)
	date := fs.String("date", "", "day of the sample (YYYY-MM-DD, default today)")
	fatigue := fs.Float64("fatigue", 0, "subjective fatigue 1-10 (required)")
	var sleep, battery, hrv, rhr, stress optFloat
	fs.Var(&sleep, "sleep", "sleep score 0-100")
	fs.Var(&battery, "battery", "body battery 0-100")
	fs.Var(&hrv, "hrv", "heart rate variability in ms")
	fs.Var(&rhr, "rhr", "resting heart rate")
	fs.Var(&stress, "stress", "stress level 0-100")
	if err := fs.Parse(args); err != nil {
		return err
	}

	day, err := parseDate(*date)
	if err != nil {
		return err
	}
	sample := model.RecoveryMetricsSample{
		Date:              day,
		SleepScore:        sleep.v,
		BodyBattery:       battery.v,
		HRV:               hrv.v,
		RestingHR:         rhr.v,
		StressLevel:       stress.v,
		SubjectiveFatigue: *fatigue,
	}
	if err := a.db.UpsertRecovery(ctx, a.profile.UserID, sample); err != nil {
		return err
	}
	if err := a.briefings.Invalidate(ctx, a.profile.UserID, day); err != nil {
		a.logger.Warn("failed to drop cached briefing", "error", err)
	}

	activities, err := a.db.ListActivities(ctx, a.profile.UserID, model.AddDays(day, -service.ActivityHistoryDays))
	if err != nil {
		return err
	}
	check := a.engine.QuickFatigueCheck(a.profile.UserID, activities, &sample, day)
	if !check.Success {
		return errors.New(check.Error)
	}
	verdict := "good to train"
	if !check.Data.CanTrain {
		verdict = "rest recommended"
	}
	fmt.Printf("Recorded %s: %s (%s)\n", model.DayKey(day), verdict, check.Data.Recommendation)
	for _, r := range check.Data.Reasons {
		fmt.Printf("  • %s\n", r)
	}
	return nil
}

func (a *app) plan(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("plan needs a subcommand: import, show, modify or adjust")
	}
	switch args[0] {
	case "import":
		return a.planImport(ctx, args[1:])
	case "show":
		p, err := a.latestPlan(ctx)
		if err != nil {
			return err
		}
		fmt.Println(report.Plan(p, time.Now()))
		return nil
	case "modify":
		return a.planModify(ctx, args[1:])
	case "adjust":
		return a.planAdjust(ctx, args[1:])
	}
	return fmt.Errorf("unknown plan subcommand %q", args[0])
}

func (a *app) planImport(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: trainer plan import <file.yaml>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading plan: %w", err)
	}
	var doc model.Plan
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing plan: %w", err)
	}
	p, err := model.NewPlan(doc.ID, a.profile.UserID, doc.Workouts)
	if err != nil {
		return err
	}
	id, err := a.db.SavePlan(ctx, p)
	if err != nil {
		return err
	}
	p.ID = id
	fmt.Println(report.Plan(p, time.Now()))
	return nil
}

func (a *app) planModify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plan modify", flag.ContinueOnError)
	date := fs.String("date", "", "day to change (YYYY-MM-DD, required)")
	action := fs.String("action", "", "change-to-rest, change-workout-type, adjust-duration or adjust-intensity")
	workoutType := fs.String("type", "", "new workout type")
	duration := fs.Float64("duration", 0, "new duration in minutes")
	var fatigue optFloat
	fs.Var(&fatigue, "fatigue", "new expected fatigue 0-100")
	reason := fs.String("reason", "", "why the change is made")
	redistribute := fs.Bool("redistribute", a.cfg.Engine.Redistribute, "spread lost load over later days")
	preserve := fs.Bool("preserve-hard-days", a.cfg.Engine.PreserveHardDays, "never add load to hard days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *date == "" || *action == "" {
		return errors.New("-date and -action are required")
	}
	day, err := model.ParseDay(*date)
	if err != nil {
		return err
	}

	p, err := a.latestPlan(ctx)
	if err != nil {
		return err
	}
	res := a.engine.ModifyWorkout(p, day, *action, plan.Options{
		Redistribute:            *redistribute,
		PreserveHardDays:        *preserve,
		MaxDailyFatigueIncrease: a.cfg.Engine.MaxDailyFatigueIncrease,
		NewWorkoutType:          *workoutType,
		NewDurationMin:          *duration,
		NewFatigue:              fatigue.v,
		Reason:                  *reason,
	})
	fmt.Println(report.PlanChange(res, time.Now()))
	return a.savePlanChange(ctx, res)
}

func (a *app) planAdjust(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plan adjust", flag.ContinueOnError)
	reason := fs.String("reason", "", "missed-workout, illness, injury, schedule-change, performance-plateau, overreaching or other")
	dates := fs.String("dates", "", "comma-separated affected days (YYYY-MM-DD)")
	maxDuration := fs.Float64("max-duration", 0, "cap on any day's duration in minutes")
	available := fs.String("available", "", "comma-separated days workouts may move to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	affected, err := parseDates(*dates)
	if err != nil {
		return err
	}
	availableDays, err := parseDates(*available)
	if err != nil {
		return err
	}

	p, err := a.latestPlan(ctx)
	if err != nil {
		return err
	}
	env := a.engine.AdjustPlan(plan.AdjustRequest{
		Plan:          p,
		Reason:        plan.ParseReason(*reason),
		AffectedDates: affected,
		Constraints: plan.Constraints{
			MaxDailyDurationMin: *maxDuration,
			AvailableDays:       availableDays,
		},
	})
	fmt.Println(report.Adjustment(env, time.Now()))
	return a.savePlanChange(ctx, env.PlanChangeResult)
}

func (a *app) savePlanChange(ctx context.Context, res service.PlanChangeResult) error {
	if !res.Success || res.AdjustedPlan == nil {
		if res.NotFound {
			return nil
		}
		return errors.New(res.Error)
	}
	if _, err := a.db.SavePlan(ctx, *res.AdjustedPlan); err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return a.briefings.Invalidate(ctx, a.profile.UserID, time.Now())
}

func (a *app) latestPlan(ctx context.Context) (model.Plan, error) {
	p, err := a.db.LatestPlan(ctx, a.profile.UserID)
	if errors.Is(err, store.ErrPlanNotFound) {
		return p, errors.New("no plan stored, run 'trainer plan import <file.yaml>' first")
	}
	return p, err
}

func (a *app) watch(ctx context.Context) error {
	var syncer scheduler.Syncer
	if svc, err := a.syncService(ctx); err == nil {
		syncer = svc
	} else {
		a.logger.Warn("sync disabled", "error", err)
	}

	s := scheduler.New(ctx, syncer, a.briefings, a.profile.UserID, time.Now, a.logger)
	if err := s.Register(a.cfg.Schedule.Sync); err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewWatchModel(s, time.Now), tea.WithAltScreen(), tea.WithContext(ctx))
	s.OnRefresh = func(b *service.Briefing, err error) {
		p.Send(tui.BriefingMsg{Briefing: b, Err: err})
	}
	s.OnProgress = func(sp service.SyncProgress) {
		p.Send(tui.SyncProgressMsg(sp))
	}

	s.Start()
	defer s.Stop()
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// optFloat is a float flag that stays nil unless set
type optFloat struct{ v *float64 }

func (o *optFloat) String() string {
	if o.v == nil {
		return ""
	}
	return strconv.FormatFloat(*o.v, 'f', -1, 64)
}

func (o *optFloat) Set(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	o.v = &f
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return model.Day(time.Now()), nil
	}
	return model.ParseDay(s)
}

func parseDates(s string) ([]time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []time.Time
	for _, part := range strings.Split(s, ",") {
		d, err := model.ParseDay(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
