package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/davidjes1/trAIn-sub002/internal/cache"
	"github.com/davidjes1/trAIn-sub002/internal/config"
	"github.com/davidjes1/trAIn-sub002/internal/logger"
	"github.com/davidjes1/trAIn-sub002/internal/model"
	"github.com/davidjes1/trAIn-sub002/internal/recommend"
	"github.com/davidjes1/trAIn-sub002/internal/service"
	"github.com/davidjes1/trAIn-sub002/internal/store"
	"github.com/davidjes1/trAIn-sub002/internal/strava"
)

const usage = `Usage: trainer <command> [flags]

Commands:
  init                      write an example config file
  login                     connect a Strava account
  sync                      pull new activities from Strava
  briefing [-date D]        readiness, tomorrow's workout and overtraining screen
  recovery -fatigue N ...   record a day's recovery metrics
  plan import <file.yaml>   store a training plan
  plan show                 print the latest plan
  plan modify -date D -action A ...
  plan adjust -reason R -dates D1,D2 ...
  watch                     sync and refresh the briefing on a schedule
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Print(usage)
		return nil
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]
	if cmd == "init" {
		return initConfig()
	}

	a, err := setup(ctx, cmd == "sync" || cmd == "watch")
	if err != nil {
		return err
	}
	defer a.close()

	switch cmd {
	case "login":
		return a.login(ctx)
	case "sync":
		return a.sync(ctx)
	case "briefing":
		return a.briefing(ctx, rest)
	case "recovery":
		return a.recovery(ctx, rest)
	case "plan":
		return a.plan(ctx, rest)
	case "watch":
		return a.watch(ctx)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func initConfig() error {
	if err := config.CreateExample(); err != nil {
		return fmt.Errorf("creating example config: %w", err)
	}
	dir, _ := config.GetConfigDir()
	fmt.Printf("Edit the config file at:\n  %s/config.yaml\n\n", dir)
	fmt.Println("Fill in your athlete profile, then either set strava.access_token")
	fmt.Println("or add API credentials from https://www.strava.com/settings/api and run 'trainer login'.")
	return nil
}

// app holds the wired dependencies shared by every command
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *store.DB
	cache     cache.Cache
	engine    *service.Engine
	briefings *service.BriefingService
	profile   model.UserTrainingProfile
	logFile   *os.File
}

// setup wires the app. Interactive screens own the terminal, so their logs
// go to a file in the config directory.
func setup(ctx context.Context, interactive bool) (*app, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		return nil, fmt.Errorf("no config file found, run 'trainer init' first")
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		dir, _ := config.GetConfigDir()
		return nil, fmt.Errorf("config validation failed (%s/config.yaml): %w", dir, err)
	}
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}

	var logOut io.Writer = os.Stderr
	var logFile *os.File
	if interactive {
		if f, err := openLogFile(); err == nil {
			logOut, logFile = f, f
		}
	}
	lg := logger.NewWithWriter(logOut, "trainer")

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		closeLog(logFile)
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.SaveProfile(ctx, profile); err != nil {
		db.Close()
		closeLog(logFile)
		return nil, fmt.Errorf("saving profile: %w", err)
	}

	seed := uint64(cfg.Engine.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	c := cache.New(cache.Options{
		ValkeyEnabled: cfg.Cache.ValkeyEnabled,
		ValkeyAddr:    cfg.Cache.ValkeyAddr,
		Prefix:        cfg.Cache.Prefix,
	}, lg)
	engine := service.NewEngine(nil, recommend.NewSeededRand(seed), time.Now, lg)
	briefing := service.NewBriefingService(engine, db, c, cfg.Cache.TTL, lg)
	briefing.SetWindows(cfg.Engine.ActivityWindowDays, cfg.Engine.RecoveryWindowDays)

	return &app{
		cfg:       cfg,
		logger:    lg,
		db:        db,
		cache:     c,
		engine:    engine,
		briefings: briefing,
		profile:   profile,
		logFile:   logFile,
	}, nil
}

func (a *app) close() {
	a.db.Close()
	closeLog(a.logFile)
}

func openLogFile() (*os.File, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "trainer.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

func closeLog(f *os.File) {
	if f != nil {
		f.Close()
	}
}

// stravaClient prefers a configured access token, then stored OAuth tokens,
// then a configured refresh token.
func (a *app) stravaClient(ctx context.Context) (*strava.Client, error) {
	if a.cfg.Strava.AccessToken != "" {
		return strava.NewClient(strava.StaticTokenSource(a.cfg.Strava.AccessToken)), nil
	}

	var token *oauth2.Token
	var athleteID int64
	stored, err := a.db.GetAuth(ctx)
	switch {
	case err == nil:
		athleteID = stored.AthleteID
		token = &oauth2.Token{
			AccessToken:  stored.AccessToken,
			RefreshToken: stored.RefreshToken,
			Expiry:       stored.ExpiresAt,
		}
	case errors.Is(err, store.ErrNoAuth):
		if err := a.cfg.ValidateStrava(); err != nil {
			return nil, fmt.Errorf("%w (or run 'trainer login')", err)
		}
		token = &oauth2.Token{RefreshToken: a.cfg.Strava.RefreshToken}
	default:
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	oauthCfg := strava.OAuthConfig(a.cfg.Strava.ClientID, a.cfg.Strava.ClientSecret)
	ts := strava.NewTokenSource(oauthCfg, token, func(t *oauth2.Token) error {
		return a.db.SaveAuth(context.Background(), &store.Auth{
			AthleteID:    athleteID,
			AccessToken:  t.AccessToken,
			RefreshToken: t.RefreshToken,
			ExpiresAt:    t.Expiry,
		})
	}, nil)
	return strava.NewClient(ts), nil
}

func (a *app) login(ctx context.Context) error {
	if a.cfg.Strava.ClientID == "" || a.cfg.Strava.ClientSecret == "" {
		return errors.New("strava.client_id and strava.client_secret are required to log in")
	}
	oauthCfg := strava.OAuthConfig(a.cfg.Strava.ClientID, a.cfg.Strava.ClientSecret)
	auth, err := strava.Authorize(ctx, oauthCfg, strava.CallbackPort, func(url string) {
		fmt.Println("To connect Strava, open this URL in your browser:")
		fmt.Printf("\n  %s\n\n", url)
		fmt.Println("Waiting for authorization...")
	})
	if err != nil {
		return err
	}
	if err := a.db.SaveAuth(ctx, &store.Auth{
		AthleteID:    auth.AthleteID,
		AccessToken:  auth.Token.AccessToken,
		RefreshToken: auth.Token.RefreshToken,
		ExpiresAt:    auth.Token.Expiry,
	}); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}
	fmt.Printf("Connected as athlete %d\n", auth.AthleteID)
	return nil
}
