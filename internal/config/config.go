package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// Config represents the application configuration
type Config struct {
	Athlete  AthleteConfig  `yaml:"athlete"`
	Strava   StravaConfig   `yaml:"strava"`
	Engine   EngineConfig   `yaml:"engine"`
	Cache    CacheConfig    `yaml:"cache"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Database DatabaseConfig `yaml:"database"`
}

// AthleteConfig holds the athlete profile
type AthleteConfig struct {
	UserID          string   `yaml:"user_id"`
	Age             int      `yaml:"age"`
	Sex             string   `yaml:"sex"`
	RestingHR       float64  `yaml:"resting_hr"`
	MaxHR           float64  `yaml:"max_hr"`
	FitnessLevel    string   `yaml:"fitness_level"`
	PreferredSports []string `yaml:"preferred_sports"`
	TrainingGoals   []string `yaml:"training_goals"`
	AvailableDays   []string `yaml:"available_days"`
	// PreferredMinutes maps a weekday name ("monday") to a session length
	PreferredMinutes map[string]float64 `yaml:"preferred_minutes,omitempty"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AccessToken  string `yaml:"access_token,omitempty"`
	RefreshToken string `yaml:"refresh_token,omitempty"`
}

// EngineConfig tunes plan changes and the recommender
type EngineConfig struct {
	Redistribute            bool    `yaml:"redistribute"`
	PreserveHardDays        bool    `yaml:"preserve_hard_days"`
	MaxDailyFatigueIncrease float64 `yaml:"max_daily_fatigue_increase"`
	// Seed pins recommender randomness. Zero seeds from the clock.
	Seed               int64 `yaml:"seed"`
	ActivityWindowDays int   `yaml:"activity_window_days"`
	RecoveryWindowDays int   `yaml:"recovery_window_days"`
}

// CacheConfig selects the briefing cache backend
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	ValkeyEnabled bool          `yaml:"valkey_enabled"`
	ValkeyAddr    string        `yaml:"valkey_addr"`
	Prefix        string        `yaml:"prefix"`
}

// ScheduleConfig drives the watch command
type ScheduleConfig struct {
	Sync string `yaml:"sync"`
}

// DatabaseConfig locates the SQLite file
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

var validLevels = map[string]bool{
	model.FitnessBeginner:     true,
	model.FitnessIntermediate: true,
	model.FitnessAdvanced:     true,
	model.FitnessElite:        true,
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Athlete: AthleteConfig{
			UserID:          "athlete",
			Age:             35,
			Sex:             "male",
			RestingHR:       50,
			MaxHR:           185,
			FitnessLevel:    model.FitnessIntermediate,
			PreferredSports: []string{"running"},
		},
		Engine: EngineConfig{
			Redistribute:            true,
			PreserveHardDays:        true,
			MaxDailyFatigueIncrease: 15,
			ActivityWindowDays:      60,
			RecoveryWindowDays:      28,
		},
		Cache: CacheConfig{
			TTL:    time.Hour,
			Prefix: "trainer",
		},
		Schedule: ScheduleConfig{
			Sync: "0 0 6 * * *",
		},
	}
}

// Load reads ~/.trainer/config.yaml (or $TRAINER_CONFIG) and applies
// environment overrides on top.
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	defaults := DefaultConfig()
	if c.Athlete.RestingHR == 0 {
		c.Athlete.RestingHR = defaults.Athlete.RestingHR
	}
	if c.Athlete.MaxHR == 0 {
		c.Athlete.MaxHR = defaults.Athlete.MaxHR
	}
	if c.Athlete.FitnessLevel == "" {
		c.Athlete.FitnessLevel = defaults.Athlete.FitnessLevel
	}
	if c.Engine.ActivityWindowDays == 0 {
		c.Engine.ActivityWindowDays = defaults.Engine.ActivityWindowDays
	}
	if c.Engine.RecoveryWindowDays == 0 {
		c.Engine.RecoveryWindowDays = defaults.Engine.RecoveryWindowDays
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = defaults.Cache.TTL
	}
	if c.Schedule.Sync == "" {
		c.Schedule.Sync = defaults.Schedule.Sync
	}
	if c.Database.Path == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return err
		}
		c.Database.Path = filepath.Join(dir, "trainer.db")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRAINER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TRAINER_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = parsed
		}
	}
	if v := os.Getenv("TRAINER_VALKEY_ADDR"); v != "" {
		cfg.Cache.ValkeyAddr = v
	}
	if v := os.Getenv("TRAINER_VALKEY_ENABLED"); v != "" {
		cfg.Cache.ValkeyEnabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("TRAINER_SCHEDULE"); v != "" {
		cfg.Schedule.Sync = v
	}
	if v := os.Getenv("STRAVA_ACCESS_TOKEN"); v != "" {
		cfg.Strava.AccessToken = v
	}
	if v := os.Getenv("STRAVA_REFRESH_TOKEN"); v != "" {
		cfg.Strava.RefreshToken = v
	}
	if v := os.Getenv("TRAINER_SEED"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Engine.Seed = parsed
		}
	}
}

// Save writes the configuration to the config path
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}
	example.Athlete.AvailableDays = []string{"monday", "tuesday", "thursday", "saturday", "sunday"}
	example.Athlete.TrainingGoals = []string{"half marathon"}

	return Save(&example)
}

// Validate checks the athlete and engine sections
func (c *Config) Validate() error {
	if c.Athlete.UserID == "" {
		return errors.New("athlete.user_id is required")
	}
	if c.Athlete.Age < 0 || c.Athlete.Age > 120 {
		return fmt.Errorf("athlete.age must be between 0 and 120, got %d", c.Athlete.Age)
	}
	if c.Athlete.Sex != "" && c.Athlete.Sex != "male" && c.Athlete.Sex != "female" {
		return fmt.Errorf("athlete.sex must be \"male\" or \"female\", got %q", c.Athlete.Sex)
	}
	if c.Athlete.FitnessLevel != "" && !validLevels[c.Athlete.FitnessLevel] {
		return fmt.Errorf("athlete.fitness_level %q is not one of beginner, intermediate, advanced, elite", c.Athlete.FitnessLevel)
	}
	if c.Athlete.RestingHR > 0 && c.Athlete.MaxHR > 0 && c.Athlete.RestingHR >= c.Athlete.MaxHR {
		return fmt.Errorf("athlete.resting_hr (%v) must be less than athlete.max_hr (%v)", c.Athlete.RestingHR, c.Athlete.MaxHR)
	}
	if _, err := parseWeekdays(c.Athlete.AvailableDays); err != nil {
		return fmt.Errorf("athlete.available_days: %w", err)
	}
	for name := range c.Athlete.PreferredMinutes {
		if _, err := parseWeekday(name); err != nil {
			return fmt.Errorf("athlete.preferred_minutes: %w", err)
		}
	}
	if c.Engine.MaxDailyFatigueIncrease < 0 {
		return errors.New("engine.max_daily_fatigue_increase must not be negative")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	if c.Cache.ValkeyEnabled && c.Cache.ValkeyAddr == "" {
		return errors.New("cache.valkey_addr is required when valkey is enabled")
	}
	return nil
}

// ValidateStrava checks the credentials needed by the sync command
func (c *Config) ValidateStrava() error {
	if c.Strava.AccessToken != "" {
		return nil
	}
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.RefreshToken == "" {
		return errors.New("strava.refresh_token or STRAVA_ACCESS_TOKEN is required")
	}
	return nil
}

// Profile converts the athlete section into the engine's profile type
func (c *Config) Profile() (model.UserTrainingProfile, error) {
	days, err := parseWeekdays(c.Athlete.AvailableDays)
	if err != nil {
		return model.UserTrainingProfile{}, err
	}
	var minutes map[time.Weekday]float64
	if len(c.Athlete.PreferredMinutes) > 0 {
		minutes = make(map[time.Weekday]float64, len(c.Athlete.PreferredMinutes))
		for name, m := range c.Athlete.PreferredMinutes {
			d, err := parseWeekday(name)
			if err != nil {
				return model.UserTrainingProfile{}, err
			}
			minutes[d] = m
		}
	}
	return model.UserTrainingProfile{
		UserID:           c.Athlete.UserID,
		Age:              c.Athlete.Age,
		Sex:              c.Athlete.Sex,
		RestingHR:        c.Athlete.RestingHR,
		MaxHR:            c.Athlete.MaxHR,
		FitnessLevel:     c.Athlete.FitnessLevel,
		PreferredSports:  c.Athlete.PreferredSports,
		TrainingGoals:    c.Athlete.TrainingGoals,
		AvailableDays:    days,
		PreferredMinutes: minutes,
	}, nil
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, err := parseWeekday(n)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	if p := os.Getenv("TRAINER_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".trainer"), nil
}
