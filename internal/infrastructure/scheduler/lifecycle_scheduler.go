package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	budgetapp "github.com/aicost/backend/internal/application/budget"
	"github.com/aicost/backend/internal/infrastructure/config"
)

// LifecycleScheduler runs the budget lifecycle jobs on a cron schedule.
// Cross-instance coordination happens inside the jobs service through its
// per-organization run lock; the scheduler itself fires on every instance.
type LifecycleScheduler struct {
	jobsSvc *budgetapp.JobsService
	cfg     config.SchedulerConfig
	cron    *cron.Cron
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewLifecycleScheduler creates a new LifecycleScheduler
func NewLifecycleScheduler(jobsSvc *budgetapp.JobsService, cfg config.SchedulerConfig, logger *zap.Logger) *LifecycleScheduler {
	return &LifecycleScheduler{
		jobsSvc: jobsSvc,
		cfg:     cfg,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers the cron entry and begins firing. It is a no-op when
// the scheduler is disabled or already started.
func (s *LifecycleScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled {
		s.logger.Info("lifecycle scheduler disabled")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.cfg.CronSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.cfg.CronSchedule, err)
	}

	_, err := s.cron.AddFunc(s.cfg.CronSchedule, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule lifecycle jobs: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("lifecycle scheduler started",
		zap.String("schedule", s.cfg.CronSchedule),
		zap.Duration("job_timeout", s.cfg.JobTimeout))
	return nil
}

func (s *LifecycleScheduler) runOnce(ctx context.Context) {
	runCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.JobTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	started := time.Now()
	if err := s.jobsSvc.RunAll(runCtx); err != nil {
		s.logger.Error("scheduled lifecycle run failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled lifecycle run completed",
		zap.Duration("duration", time.Since(started)))
}

// Stop halts the cron loop and waits for a running job to finish
func (s *LifecycleScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("lifecycle scheduler stopped")
}

// IsRunning reports whether the scheduler has been started
func (s *LifecycleScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
