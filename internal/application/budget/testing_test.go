package budget

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aicost/backend/internal/domain/alert"
	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
	"github.com/aicost/backend/internal/domain/usage"
	"github.com/aicost/backend/internal/infrastructure/persistence"
	"github.com/aicost/backend/internal/infrastructure/persistence/models"
)

type testEnv struct {
	budgetRepo     budget.BudgetRepository
	periodRepo     budget.PeriodRepository
	thresholdRepo  budget.ThresholdRepository
	adjustmentRepo budget.AdjustmentRepository
	usageRepo      usage.RecordRepository
	alertRepo      alert.EventRepository

	periodManager    *PeriodManager
	calcEngine       *CalculationEngine
	thresholdChecker *ThresholdChecker
	allocationSvc    *AllocationService
	budgetSvc        *BudgetService
	jobsSvc          *JobsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.BudgetModel{},
		&models.BudgetPeriodModel{},
		&models.BudgetThresholdModel{},
		&models.BudgetAdjustmentModel{},
		&models.UsageRecordModel{},
		&models.AlertEventModel{},
	)
	require.NoError(t, err)

	logger := zap.NewNop()

	env := &testEnv{
		budgetRepo:     persistence.NewGormBudgetRepository(db),
		periodRepo:     persistence.NewGormPeriodRepository(db),
		thresholdRepo:  persistence.NewGormThresholdRepository(db),
		adjustmentRepo: persistence.NewGormAdjustmentRepository(db),
		usageRepo:      persistence.NewGormUsageRecordRepository(db),
		alertRepo:      persistence.NewGormAlertEventRepository(db),
	}

	env.periodManager = NewPeriodManager(env.budgetRepo, env.periodRepo, env.thresholdRepo, logger)
	env.calcEngine = NewCalculationEngine(env.budgetRepo, env.periodRepo, env.usageRepo, env.periodManager, logger)
	env.thresholdChecker = NewThresholdChecker(env.budgetRepo, env.periodRepo, env.thresholdRepo, env.alertRepo, env.periodManager, logger)
	env.allocationSvc = NewAllocationService(env.budgetRepo, env.periodRepo, env.adjustmentRepo, env.periodManager)
	env.budgetSvc = NewBudgetService(env.budgetRepo, env.periodRepo, env.thresholdRepo, env.adjustmentRepo, env.periodManager, nil)
	env.jobsSvc = NewJobsService(env.budgetRepo, env.alertRepo, env.periodManager, env.calcEngine, env.thresholdChecker, nil, JobsConfig{ForecastEnabled: true}, logger)
	return env
}

func (e *testEnv) createBudget(t *testing.T, orgID uuid.UUID, amount int64, req CreateBudgetRequest) *BudgetResponse {
	t.Helper()
	if req.Name == "" {
		req.Name = "Monthly AI budget"
	}
	if req.Type == "" {
		req.Type = budget.TypeOrganization
	}
	if req.Amount.IsZero() {
		req.Amount = decimal.NewFromInt(amount)
	}
	if req.PeriodType == "" {
		req.PeriodType = budget.PeriodMonthly
	}
	resp, err := e.budgetSvc.CreateBudget(context.Background(), orgID, req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) addUsage(t *testing.T, orgID uuid.UUID, cost float64, at time.Time) {
	t.Helper()
	money, err := valueobject.NewMoneyFromFloat(cost, valueobject.DefaultCurrency)
	require.NoError(t, err)
	r, err := usage.NewRecord(orgID, "openai", "gpt-4o", money, at)
	require.NoError(t, err)
	require.NoError(t, e.usageRepo.Create(context.Background(), r))
}

func teamRecord(t *testing.T, e *testEnv, orgID, teamID uuid.UUID, cost float64, at time.Time) {
	t.Helper()
	money, err := valueobject.NewMoneyFromFloat(cost, valueobject.DefaultCurrency)
	require.NoError(t, err)
	r, err := usage.NewRecord(orgID, "anthropic", "claude-sonnet-4", money, at)
	require.NoError(t, err)
	r.TeamID = &teamID
	require.NoError(t, e.usageRepo.Create(context.Background(), r))
}
