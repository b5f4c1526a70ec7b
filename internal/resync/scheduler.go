// Package resync refreshes the local collection from the backend on a cron
// schedule and on demand (for example after the channel reconnects).
//
// A refresh that is still running when the next one is due is skipped, so
// at most one GetAll is in flight at a time.
package resync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/devsync/internal/infrastructure/logging"
)

// ErrInvalidSchedule is returned by New for a schedule cron cannot parse.
var ErrInvalidSchedule = errors.New("resync: invalid schedule")

// Loader replaces the local collection with the backend's.
type Loader interface {
	LoadAll(ctx context.Context) error
}

// Recorder receives the outcome of each refresh.
type Recorder interface {
	WriteResync(reason string, ok bool, took time.Duration)
}

// Scheduler runs Loader.LoadAll periodically.
type Scheduler struct {
	loader   Loader
	logger   *logging.Logger
	recorder Recorder
	schedule string
	cron     *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	running atomic.Bool
	runs    atomic.Int64
	wg      sync.WaitGroup
}

// New creates a scheduler for schedule. An empty schedule disables periodic
// refreshes; Trigger still works.
func New(schedule string, loader Loader, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Scheduler{
		loader:   loader,
		logger:   logger,
		schedule: schedule,
		ctx:      context.Background(),
	}
	if schedule == "" {
		return s, nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, func() { s.refresh("schedule") }); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, schedule, err)
	}
	return s, nil
}

// SetRecorder enables refresh telemetry. Call before Start.
func (s *Scheduler) SetRecorder(r Recorder) {
	s.recorder = r
}

// Enabled reports whether periodic refreshes are configured.
func (s *Scheduler) Enabled() bool {
	return s.cron != nil
}

// Start begins periodic refreshes. Jobs run with a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.cron != nil {
		s.cron.Start()
		s.logger.Info("resync scheduler started", "schedule", s.schedule)
	}
}

// Stop halts the schedule, cancels the refresh context and waits for every
// running refresh, triggered ones included, to return.
func (s *Scheduler) Stop() {
	defer s.wg.Wait()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("resync scheduler stopped")
	}
	if cancel != nil {
		cancel()
	}
}

// Trigger runs a refresh in the background unless one is already running.
func (s *Scheduler) Trigger(reason string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.refresh(reason)
	}()
}

// Runs returns the number of refreshes that have completed.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

func (s *Scheduler) refresh(reason string) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("resync skipped, previous refresh still running", "reason", reason)
		return
	}
	defer s.running.Store(false)

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	err := s.loader.LoadAll(ctx)
	took := time.Since(start)
	if err != nil {
		s.logger.Warn("resync failed", "reason", reason, "error", err)
	} else {
		s.logger.Debug("resync completed", "reason", reason, "duration_ms", took.Milliseconds())
	}
	if s.recorder != nil {
		s.recorder.WriteResync(reason, err == nil, took)
	}
	s.runs.Add(1)
}
