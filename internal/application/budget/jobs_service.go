package budget

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aicost/backend/internal/domain/alert"
	"github.com/aicost/backend/internal/domain/budget"
)

// RunLocker serializes lifecycle runs per organization across instances.
// Acquire returns false when another instance holds the lock.
type RunLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string)
}

// JobsConfig tunes the lifecycle run
type JobsConfig struct {
	ForecastEnabled bool
	AlertDetailsCap int
	LockTTL         time.Duration
}

// JobsService orchestrates the budget lifecycle run: period maintenance,
// spend recalculation, threshold checks and forecasting.
type JobsService struct {
	budgetRepo       budget.BudgetRepository
	alertRepo        alert.EventRepository
	periodManager    *PeriodManager
	calcEngine       *CalculationEngine
	thresholdChecker *ThresholdChecker
	locker           RunLocker
	cfg              JobsConfig
	logger           *zap.Logger

	mu       sync.RWMutex
	lastRuns map[uuid.UUID]*JobRunReport
}

// NewJobsService creates a new JobsService
func NewJobsService(
	budgetRepo budget.BudgetRepository,
	alertRepo alert.EventRepository,
	periodManager *PeriodManager,
	calcEngine *CalculationEngine,
	thresholdChecker *ThresholdChecker,
	locker RunLocker,
	cfg JobsConfig,
	logger *zap.Logger,
) *JobsService {
	if cfg.AlertDetailsCap <= 0 {
		cfg.AlertDetailsCap = 10
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Minute
	}
	return &JobsService{
		budgetRepo:       budgetRepo,
		alertRepo:        alertRepo,
		periodManager:    periodManager,
		calcEngine:       calcEngine,
		thresholdChecker: thresholdChecker,
		locker:           locker,
		cfg:              cfg,
		logger:           logger,
		lastRuns:         map[uuid.UUID]*JobRunReport{},
	}
}

// JobType selects which lifecycle stages a run executes
type JobType string

// Lifecycle job types
const (
	JobAll         JobType = "all"
	JobPeriods     JobType = "periods"
	JobRecalculate JobType = "recalculate"
	JobThresholds  JobType = "thresholds"
	JobForecast    JobType = "forecast"
)

// Valid reports whether the job type is known
func (t JobType) Valid() bool {
	switch t {
	case JobAll, JobPeriods, JobRecalculate, JobThresholds, JobForecast:
		return true
	}
	return false
}

func (t JobType) includes(stage JobType) bool {
	return t == JobAll || t == stage
}

// JobRunReport is the outcome of one lifecycle run for an organization
type JobRunReport struct {
	OrganizationID      uuid.UUID              `json:"organization_id"`
	JobType             JobType                `json:"job_type"`
	StartedAt           time.Time              `json:"started_at"`
	FinishedAt          time.Time              `json:"finished_at"`
	PeriodsCreated      int                    `json:"periods_created"`
	PeriodsRolled       int                    `json:"periods_rolled"`
	RolloverFailures    int                    `json:"rollover_failures"`
	BudgetsRecalculated int                    `json:"budgets_recalculated"`
	ThresholdsTriggered int                    `json:"thresholds_triggered"`
	ForecastsRefreshed  int                    `json:"forecasts_refreshed"`
	Rollovers           []PeriodRolloverResult `json:"rollovers,omitempty"`
	Errors              []string               `json:"errors,omitempty"`
	Skipped             bool                   `json:"skipped"`
}

// JobStatusResponse reports the last lifecycle run plus period and
// alert context
type JobStatusResponse struct {
	LastRun      *JobRunReport      `json:"last_run,omitempty"`
	PeriodStats  budget.PeriodStats `json:"period_stats"`
	ActiveAlerts int64              `json:"active_alerts"`
	RecentAlerts []AlertDetail      `json:"recent_alerts,omitempty"`
}

// AlertDetail is one recent alert event in the job status
type AlertDetail struct {
	ID        uuid.UUID      `json:"id"`
	Severity  alert.Severity `json:"severity"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	CreatedAt time.Time      `json:"created_at"`
}

// RunForOrganization executes the full lifecycle run for one organization
func (s *JobsService) RunForOrganization(ctx context.Context, organizationID uuid.UUID) *JobRunReport {
	return s.Run(ctx, organizationID, JobAll)
}

// Run executes the selected lifecycle stages for one organization. The
// run is guarded by a per-organization lock; a held lock skips the run.
// Stage failures are captured in the report and do not abort later stages.
func (s *JobsService) Run(ctx context.Context, organizationID uuid.UUID, jobType JobType) *JobRunReport {
	if jobType == "" {
		jobType = JobAll
	}
	report := &JobRunReport{
		OrganizationID: organizationID,
		JobType:        jobType,
		StartedAt:      time.Now(),
	}

	lockKey := "jobs:run:" + organizationID.String()
	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL)
		if err != nil {
			report.Errors = append(report.Errors, "lock: "+err.Error())
		}
		if err == nil && !acquired {
			report.Skipped = true
			report.FinishedAt = time.Now()
			return report
		}
		if err == nil {
			defer s.locker.Release(ctx, lockKey)
		}
	}

	if jobType.includes(JobPeriods) {
		created, err := s.periodManager.EnsureAllPeriodsExist(ctx, organizationID)
		if err != nil {
			report.Errors = append(report.Errors, "ensure periods: "+err.Error())
		}
		report.PeriodsCreated = created

		rollovers, err := s.periodManager.ProcessExpiredPeriods(ctx, organizationID)
		if err != nil {
			report.Errors = append(report.Errors, "process expired periods: "+err.Error())
		}
		report.Rollovers = rollovers
		for _, r := range rollovers {
			if r.Success {
				report.PeriodsRolled++
			} else {
				report.RolloverFailures++
			}
		}
	}

	if jobType.includes(JobRecalculate) {
		recalculated, err := s.calcEngine.RecalculateOrganizationBudgets(ctx, organizationID)
		if err != nil {
			report.Errors = append(report.Errors, "recalculate budgets: "+err.Error())
		}
		report.BudgetsRecalculated = recalculated
	}

	if jobType.includes(JobThresholds) {
		triggered, err := s.thresholdChecker.CheckOrganizationThresholds(ctx, organizationID)
		if err != nil {
			report.Errors = append(report.Errors, "check thresholds: "+err.Error())
		}
		report.ThresholdsTriggered = triggered
	}

	// an explicit forecast run bypasses the config gate
	if jobType == JobForecast || (jobType == JobAll && s.cfg.ForecastEnabled) {
		refreshed, err := s.calcEngine.RefreshForecasts(ctx, organizationID)
		if err != nil {
			report.Errors = append(report.Errors, "refresh forecasts: "+err.Error())
		}
		report.ForecastsRefreshed = refreshed
	}

	report.FinishedAt = time.Now()

	s.mu.Lock()
	s.lastRuns[organizationID] = report
	s.mu.Unlock()

	s.logger.Info("lifecycle run finished",
		zap.String("organization_id", organizationID.String()),
		zap.String("job_type", string(jobType)),
		zap.Int("periods_created", report.PeriodsCreated),
		zap.Int("periods_rolled", report.PeriodsRolled),
		zap.Int("budgets_recalculated", report.BudgetsRecalculated),
		zap.Int("thresholds_triggered", report.ThresholdsTriggered),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))

	return report
}

// RunAll runs the lifecycle for every organization with active budgets.
// Used by the cron scheduler.
func (s *JobsService) RunAll(ctx context.Context) error {
	orgs, err := s.budgetRepo.OrganizationsWithActiveBudgets(ctx)
	if err != nil {
		return err
	}
	for _, orgID := range orgs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.RunForOrganization(ctx, orgID)
	}
	return nil
}

// GetJobStatus reports the organization's last lifecycle run and recent alerts
func (s *JobsService) GetJobStatus(ctx context.Context, organizationID uuid.UUID) (*JobStatusResponse, error) {
	s.mu.RLock()
	lastRun := s.lastRuns[organizationID]
	s.mu.RUnlock()

	periodStats, err := s.periodManager.GetPeriodStats(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	activeAlerts, err := s.alertRepo.CountActiveByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	events, err := s.alertRepo.ListByOrganization(ctx, organizationID, s.cfg.AlertDetailsCap)
	if err != nil {
		return nil, err
	}
	details := make([]AlertDetail, len(events))
	for i, e := range events {
		details[i] = AlertDetail{
			ID:        e.GetID(),
			Severity:  e.Severity,
			Title:     e.Title,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		}
	}

	return &JobStatusResponse{
		LastRun:      lastRun,
		PeriodStats:  periodStats,
		ActiveAlerts: activeAlerts,
		RecentAlerts: details,
	}, nil
}
