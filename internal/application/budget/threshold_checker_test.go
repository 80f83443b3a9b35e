package budget

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicost/backend/internal/domain/alert"
	"github.com/aicost/backend/internal/domain/budget"
)

func (e *testEnv) budgetWithSpend(t *testing.T, orgID uuid.UUID, amount int64, spend float64, thresholds []ThresholdInput) (*budget.Budget, *budget.Period) {
	t.Helper()
	ctx := context.Background()

	resp := e.createBudget(t, orgID, amount, CreateBudgetRequest{Thresholds: thresholds})
	b, err := e.budgetRepo.FindByID(ctx, orgID, resp.ID)
	require.NoError(t, err)
	p, _, err := e.periodManager.EnsureCurrentPeriod(ctx, b, time.Now())
	require.NoError(t, err)

	if spend > 0 {
		e.addUsage(t, orgID, spend, time.Now())
		require.NoError(t, e.calcEngine.UpdatePeriodSpend(ctx, b, p))
	}
	return b, p
}

func TestThresholdChecker_TriggersOncePerPeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	b, p := env.budgetWithSpend(t, orgID, 1000, 850, []ThresholdInput{
		{Percentage: decimal.NewFromInt(50), Action: budget.ActionAlert},
		{Percentage: decimal.NewFromInt(80), Action: budget.ActionAlert},
		{Percentage: decimal.NewFromInt(100), Action: budget.ActionAlert},
	})

	triggered, err := env.thresholdChecker.CheckBudgetThresholds(ctx, b, p)
	require.NoError(t, err)
	assert.Equal(t, 2, triggered) // 50 and 80 crossed at 85%

	// second pass fires nothing new
	triggered, err = env.thresholdChecker.CheckBudgetThresholds(ctx, b, p)
	require.NoError(t, err)
	assert.Equal(t, 0, triggered)

	events, err := env.alertRepo.ListByOrganization(ctx, orgID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, alert.SeverityWarning, e.Severity)
		assert.Equal(t, alert.TypeBudgetThreshold, e.Type)
	}
}

func TestThresholdChecker_CriticalSeverityAtFullUtilization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	b, p := env.budgetWithSpend(t, orgID, 100, 120, []ThresholdInput{
		{Percentage: decimal.NewFromInt(100), Action: budget.ActionAlert},
	})

	triggered, err := env.thresholdChecker.CheckBudgetThresholds(ctx, b, p)
	require.NoError(t, err)
	assert.Equal(t, 1, triggered)

	events, err := env.alertRepo.ListByOrganization(ctx, orgID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, alert.SeverityCritical, events[0].Severity)
}

func TestThresholdChecker_ThrottleAction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	b, p := env.budgetWithSpend(t, orgID, 1000, 900, []ThresholdInput{
		{Percentage: decimal.NewFromInt(90), Action: budget.ActionThrottle},
	})

	_, err := env.thresholdChecker.CheckBudgetThresholds(ctx, b, p)
	require.NoError(t, err)

	reloaded, err := env.budgetRepo.FindByID(ctx, orgID, b.GetID())
	require.NoError(t, err)
	assert.Equal(t, budget.ModeThrottle, reloaded.Mode)
	// throttled down to the 10% of headroom that is left
	assert.True(t, reloaded.ThrottlePercentage.Equal(decimal.NewFromInt(10)),
		"got throttle %s", reloaded.ThrottlePercentage)
}

func TestThresholdChecker_BlockAction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	b, p := env.budgetWithSpend(t, orgID, 100, 100, []ThresholdInput{
		{Percentage: decimal.NewFromInt(100), Action: budget.ActionBlock},
	})

	_, err := env.thresholdChecker.CheckBudgetThresholds(ctx, b, p)
	require.NoError(t, err)

	reloaded, err := env.budgetRepo.FindByID(ctx, orgID, b.GetID())
	require.NoError(t, err)
	assert.Equal(t, budget.ModeHard, reloaded.Mode)
}

func TestThresholdChecker_AlertDisabledStillTriggers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	silent := false
	b, p := env.budgetWithSpend(t, orgID, 100, 90, []ThresholdInput{
		{Percentage: decimal.NewFromInt(80), Action: budget.ActionAlert, AlertEnabled: &silent},
	})

	triggered, err := env.thresholdChecker.CheckBudgetThresholds(ctx, b, p)
	require.NoError(t, err)
	assert.Equal(t, 1, triggered)

	// no alert event is recorded for a silent threshold
	events, err := env.alertRepo.ListByOrganization(ctx, orgID, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestThresholdChecker_CheckOrganizationThresholds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	env.budgetWithSpend(t, orgID, 1000, 850, []ThresholdInput{
		{Percentage: decimal.NewFromInt(80), Action: budget.ActionAlert},
	})

	triggered, err := env.thresholdChecker.CheckOrganizationThresholds(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, 1, triggered)
}

func TestThresholdChecker_GetAlertStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("ok when nothing is near its limit", func(t *testing.T) {
		orgID := uuid.New()
		env.budgetWithSpend(t, orgID, 1000, 100, nil)

		status, err := env.thresholdChecker.GetAlertStatus(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "ok", status.Status)
		assert.Equal(t, 0, status.ExceededBudgets)
	})

	t.Run("approaching at 80 percent without thresholds", func(t *testing.T) {
		orgID := uuid.New()
		env.budgetWithSpend(t, orgID, 1000, 850, nil)

		status, err := env.thresholdChecker.GetAlertStatus(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "approaching", status.Status)
		assert.Equal(t, 1, status.ApproachingLimits)
	})

	t.Run("approaching follows the highest configured threshold", func(t *testing.T) {
		orgID := uuid.New()
		env.budgetWithSpend(t, orgID, 1000, 700, []ThresholdInput{
			{Percentage: decimal.NewFromInt(50), Action: budget.ActionAlert},
			{Percentage: decimal.NewFromInt(60), Action: budget.ActionAlert},
		})

		// 70% is past the highest threshold (60), so this is approaching
		status, err := env.thresholdChecker.GetAlertStatus(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "approaching", status.Status)
		assert.Equal(t, 1, status.ApproachingLimits)
	})

	t.Run("thresholds above utilization keep the status ok", func(t *testing.T) {
		orgID := uuid.New()
		env.budgetWithSpend(t, orgID, 1000, 850, []ThresholdInput{
			{Percentage: decimal.NewFromInt(90), Action: budget.ActionAlert},
		})

		status, err := env.thresholdChecker.GetAlertStatus(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "ok", status.Status)
		assert.Equal(t, 0, status.ApproachingLimits)
	})

	t.Run("a lone 100 percent threshold falls back to 80", func(t *testing.T) {
		orgID := uuid.New()
		env.budgetWithSpend(t, orgID, 1000, 850, []ThresholdInput{
			{Percentage: decimal.NewFromInt(100), Action: budget.ActionAlert},
		})

		status, err := env.thresholdChecker.GetAlertStatus(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "approaching", status.Status)
	})

	t.Run("exceeded wins over approaching", func(t *testing.T) {
		orgID := uuid.New()
		env.budgetWithSpend(t, orgID, 1000, 850, nil)
		env.budgetWithSpend(t, orgID, 100, 150, nil)

		status, err := env.thresholdChecker.GetAlertStatus(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "exceeded", status.Status)
		assert.Equal(t, 1, status.ExceededBudgets)
		assert.True(t, status.MaxUtilization.GreaterThanOrEqual(decimal.NewFromInt(100)))
	})
}
