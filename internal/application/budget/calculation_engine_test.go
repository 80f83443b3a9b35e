package budget

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicost/backend/internal/domain/budget"
)

func TestCalculationEngine_UpdatePeriodSpend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	resp := env.createBudget(t, orgID, 1000, CreateBudgetRequest{})
	b, err := env.budgetRepo.FindByID(ctx, orgID, resp.ID)
	require.NoError(t, err)
	p, _, err := env.periodManager.EnsureCurrentPeriod(ctx, b, time.Now())
	require.NoError(t, err)

	now := time.Now()
	env.addUsage(t, orgID, 120.50, now)
	env.addUsage(t, orgID, 79.50, now)
	// outside the period window
	env.addUsage(t, orgID, 999, p.PeriodStart.Add(-time.Hour))
	// another tenant
	env.addUsage(t, uuid.New(), 500, now)

	require.NoError(t, env.calcEngine.UpdatePeriodSpend(ctx, b, p))

	assert.True(t, p.SpentAmount.Amount().Equal(decimal.NewFromInt(200)),
		"got spend %s", p.SpentAmount.Amount())
	assert.NotNil(t, p.LastCalculatedAt)

	// spend mirrors onto the budget
	reloaded, err := env.budgetRepo.FindByID(ctx, orgID, resp.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CurrentSpend.Amount().Equal(decimal.NewFromInt(200)))
}

func TestCalculationEngine_UpdatePeriodSpendIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	resp := env.createBudget(t, orgID, 1000, CreateBudgetRequest{})
	b, err := env.budgetRepo.FindByID(ctx, orgID, resp.ID)
	require.NoError(t, err)
	p, _, err := env.periodManager.EnsureCurrentPeriod(ctx, b, time.Now())
	require.NoError(t, err)

	env.addUsage(t, orgID, 50, time.Now())

	require.NoError(t, env.calcEngine.UpdatePeriodSpend(ctx, b, p))
	require.NoError(t, env.calcEngine.UpdatePeriodSpend(ctx, b, p))

	assert.True(t, p.SpentAmount.Amount().Equal(decimal.NewFromInt(50)))
}

func TestCalculationEngine_RecalculateOrganizationBudgets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	env.createBudget(t, orgID, 1000, CreateBudgetRequest{Name: "First"})
	env.createBudget(t, orgID, 2000, CreateBudgetRequest{Name: "Second"})

	// paused budgets are skipped
	paused := env.createBudget(t, orgID, 500, CreateBudgetRequest{Name: "Paused"})
	status := budget.StatusPaused
	_, err := env.budgetSvc.UpdateBudget(ctx, orgID, paused.ID, UpdateBudgetRequest{Status: &status})
	require.NoError(t, err)

	env.addUsage(t, orgID, 300, time.Now())

	updated, err := env.calcEngine.RecalculateOrganizationBudgets(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
}

func TestCalculationEngine_CalculateForecast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	resp := env.createBudget(t, orgID, 1000, CreateBudgetRequest{})

	now := time.Now()
	env.addUsage(t, orgID, 40, now.Add(-time.Minute))
	env.addUsage(t, orgID, 60, now.Add(-time.Minute))

	forecast, err := env.calcEngine.CalculateForecast(ctx, orgID, resp.ID)
	require.NoError(t, err)

	assert.Equal(t, resp.ID, forecast.BudgetID)
	assert.True(t, forecast.CurrentSpend.Equal(decimal.NewFromInt(100)))
	assert.True(t, forecast.TotalBudget.Equal(decimal.NewFromInt(1000)))
	assert.True(t, forecast.AvgDailySpend.IsPositive())
	assert.True(t, forecast.ProjectedSpend.GreaterThanOrEqual(forecast.CurrentSpend))
	// a day or two of data cannot support a confident projection
	assert.Equal(t, budget.ConfidenceLow, forecast.Confidence)
	assert.Equal(t, budget.TrendStable, forecast.Trend)

	// forecast is persisted onto the period
	p, err := env.periodRepo.FindByID(ctx, forecast.PeriodID)
	require.NoError(t, err)
	require.NotNil(t, p.ForecastedSpend)
	assert.True(t, p.ForecastedSpend.Amount().Equal(forecast.ProjectedSpend))
}

func TestCalculationEngine_CalculateForecastUnknownBudget(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.calcEngine.CalculateForecast(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
}

func TestCalculationEngine_ScopedBudgetOnlySumsItsSlice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()
	teamID := uuid.New()

	resp := env.createBudget(t, orgID, 1000, CreateBudgetRequest{
		Name:   "Team budget",
		Type:   budget.TypeTeam,
		TeamID: &teamID,
	})
	b, err := env.budgetRepo.FindByID(ctx, orgID, resp.ID)
	require.NoError(t, err)
	p, _, err := env.periodManager.EnsureCurrentPeriod(ctx, b, time.Now())
	require.NoError(t, err)

	// one record for the team, one for the rest of the org
	env.addUsage(t, orgID, 500, time.Now())
	teamRecord(t, env, orgID, teamID, 75, time.Now())

	require.NoError(t, env.calcEngine.UpdatePeriodSpend(ctx, b, p))
	assert.True(t, p.SpentAmount.Amount().Equal(decimal.NewFromInt(75)),
		"got spend %s", p.SpentAmount.Amount())
}
