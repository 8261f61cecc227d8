// Package scheduler runs the daily sync and briefing refresh on a cron
// schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/davidjes1/trAIn-sub002/internal/service"
)

// ErrBusy is returned by RunNow while another refresh is in progress
var ErrBusy = errors.New("refresh already running")

// Syncer pulls new activities into the store
type Syncer interface {
	Sync(ctx context.Context, progress chan<- service.SyncProgress) (*service.SyncResult, error)
}

// Briefer rebuilds the daily briefing
type Briefer interface {
	Invalidate(ctx context.Context, userID string, date time.Time) error
	Daily(ctx context.Context, userID string, date time.Time) (*service.Briefing, error)
}

// Scheduler manages the refresh job. Runs never overlap: a tick that fires
// while the previous run is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	syncer  Syncer
	briefer Briefer
	userID  string
	now     func() time.Time
	logger  *slog.Logger

	// OnRefresh, when set, receives the outcome of each scheduled run
	OnRefresh func(*service.Briefing, error)
	// OnProgress, when set, receives sync progress during any run
	OnProgress func(service.SyncProgress)

	mu      sync.Mutex
	running bool
}

// New creates a scheduler with a seconds-resolution cron parser. syncer
// may be nil when no ingestion source is configured.
func New(ctx context.Context, syncer Syncer, briefer Briefer, userID string, now func() time.Time, logger *slog.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		ctx:     ctx,
		syncer:  syncer,
		briefer: briefer,
		userID:  userID,
		now:     now,
		logger:  logger.With("component", "scheduler"),
	}
}

// Register adds the refresh job on spec, e.g. "0 0 6 * * *"
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.refresh); err != nil {
		return fmt.Errorf("register refresh job %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Next reports when the refresh job fires next
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow executes the refresh immediately and returns the new briefing
func (s *Scheduler) RunNow() (*service.Briefing, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	today := s.now()
	if s.syncer != nil {
		res, err := s.syncer.Sync(s.ctx, s.progress())
		if err != nil {
			// stale data still yields a briefing
			s.logger.Error("scheduled sync failed", "error", err)
		} else {
			s.logger.Info("scheduled sync done", "stored", res.ActivitiesStored, "errors", len(res.Errors))
		}
	}

	if err := s.briefer.Invalidate(s.ctx, s.userID, today); err != nil {
		s.logger.Warn("failed to drop cached briefing", "error", err)
	}
	b, err := s.briefer.Daily(s.ctx, s.userID, today)
	if err != nil {
		return nil, fmt.Errorf("building briefing: %w", err)
	}
	return b, nil
}

// progress returns a channel forwarding to OnProgress, or nil without one.
// Sync closes the channel, which ends the forwarding goroutine.
func (s *Scheduler) progress() chan<- service.SyncProgress {
	if s.OnProgress == nil {
		return nil
	}
	ch := make(chan service.SyncProgress)
	go func() {
		for p := range ch {
			s.OnProgress(p)
		}
	}()
	return ch
}

func (s *Scheduler) refresh() {
	b, err := s.RunNow()
	if err != nil {
		s.logger.Error("scheduled refresh failed", "error", err)
	}
	if s.OnRefresh != nil {
		s.OnRefresh(b, err)
	}
}
