// Package scheduler runs the periodic background jobs of a long-lived process.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"

	"github.com/PWRApex/english-prep-companion/core"
)

// ExpiryChecker refreshes or drops the current session when it expires.
type ExpiryChecker interface {
	CheckExpiry(ctx context.Context) error
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	checker   ExpiryChecker
	interval  time.Duration
	timeout   time.Duration
	logger    core.Logger
}

func New(checker ExpiryChecker, interval time.Duration, logger core.Logger) *Scheduler {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		checker:   checker,
		interval:  interval,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// Start schedules the jobs and runs them in the background, the first run being immediate.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.Errorf("invalid session check interval %s", s.interval)
	}
	if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.checkSession); err != nil {
		return errors.Wrap(err, "scheduling session check")
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) checkSession() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.checker.CheckExpiry(ctx); err != nil {
		s.logger.Warn("checking session expiry", err)
	}
}
