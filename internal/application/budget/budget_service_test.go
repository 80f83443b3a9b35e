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
	"github.com/aicost/backend/internal/domain/shared"
)

func TestBudgetService_CreateBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()
	teamID := uuid.New()

	pct := decimal.NewFromInt(75)
	resp, err := env.budgetSvc.CreateBudget(ctx, orgID, CreateBudgetRequest{
		Name:               "Platform team",
		Description:        "Monthly LLM spend for the platform team",
		Type:               budget.TypeTeam,
		TeamID:             &teamID,
		Amount:             decimal.NewFromInt(2500),
		PeriodType:         budget.PeriodMonthly,
		Mode:               budget.ModeHard,
		RolloverEnabled:    true,
		RolloverPercentage: &pct,
		Thresholds: []ThresholdInput{
			{Percentage: decimal.NewFromInt(80), Action: budget.ActionAlert},
			{Percentage: decimal.NewFromInt(100), Action: budget.ActionBlock},
		},
		Tags: []string{"team", "llm"},
	})
	require.NoError(t, err)

	assert.Equal(t, orgID, resp.OrganizationID)
	assert.Equal(t, budget.TypeTeam, resp.Type)
	require.NotNil(t, resp.TeamID)
	assert.Equal(t, teamID, *resp.TeamID)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, budget.ModeHard, resp.Mode)
	assert.True(t, resp.RolloverEnabled)
	assert.True(t, resp.RolloverPercentage.Equal(pct))
	assert.Len(t, resp.Thresholds, 2)

	// the first period opens on create and contains now
	require.NotNil(t, resp.CurrentPeriod)
	now := time.Now()
	assert.False(t, now.Before(resp.CurrentPeriod.PeriodStart))
	assert.True(t, now.Before(resp.CurrentPeriod.PeriodEnd))
	assert.True(t, resp.CurrentPeriod.TotalBudget.Equal(decimal.NewFromInt(2500)))
}

func TestBudgetService_CreateBudgetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("scope must match the type", func(t *testing.T) {
		_, err := env.budgetSvc.CreateBudget(ctx, orgID, CreateBudgetRequest{
			Name:       "Team without team",
			Type:       budget.TypeTeam,
			Amount:     decimal.NewFromInt(100),
			PeriodType: budget.PeriodMonthly,
		})
		require.Error(t, err)
	})

	t.Run("organization budgets reject scope references", func(t *testing.T) {
		teamID := uuid.New()
		_, err := env.budgetSvc.CreateBudget(ctx, orgID, CreateBudgetRequest{
			Name:       "Org with team",
			Type:       budget.TypeOrganization,
			TeamID:     &teamID,
			Amount:     decimal.NewFromInt(100),
			PeriodType: budget.PeriodMonthly,
		})
		require.Error(t, err)
	})

	t.Run("a second scope reference is rejected", func(t *testing.T) {
		teamID := uuid.New()
		userID := uuid.New()
		_, err := env.budgetSvc.CreateBudget(ctx, orgID, CreateBudgetRequest{
			Name:       "Team with stray user ref",
			Type:       budget.TypeTeam,
			TeamID:     &teamID,
			UserID:     &userID,
			Amount:     decimal.NewFromInt(100),
			PeriodType: budget.PeriodMonthly,
		})
		require.Error(t, err)
	})

	t.Run("custom cadence requires bounds", func(t *testing.T) {
		_, err := env.budgetSvc.CreateBudget(ctx, orgID, CreateBudgetRequest{
			Name:       "Custom without bounds",
			Type:       budget.TypeOrganization,
			Amount:     decimal.NewFromInt(100),
			PeriodType: budget.PeriodCustom,
		})
		require.Error(t, err)
	})

	t.Run("bad threshold aborts the create", func(t *testing.T) {
		_, err := env.budgetSvc.CreateBudget(ctx, orgID, CreateBudgetRequest{
			Name:       "Bad threshold",
			Type:       budget.TypeOrganization,
			Amount:     decimal.NewFromInt(100),
			PeriodType: budget.PeriodMonthly,
			Thresholds: []ThresholdInput{
				{Percentage: decimal.NewFromInt(-5), Action: budget.ActionAlert},
			},
		})
		require.Error(t, err)

		page, err := env.budgetSvc.ListBudgets(ctx, orgID, ListBudgetsRequest{})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})
}

func TestBudgetService_UpdateBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	resp := env.createBudget(t, orgID, 1000, CreateBudgetRequest{})

	name := "Renamed budget"
	amount := decimal.NewFromInt(3000)
	mode := budget.ModeThrottle
	updated, err := env.budgetSvc.UpdateBudget(ctx, orgID, resp.ID, UpdateBudgetRequest{
		Name:   &name,
		Amount: &amount,
		Mode:   &mode,
		Tags:   []string{"updated"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Renamed budget", updated.Name)
	assert.True(t, updated.Amount.Equal(amount))
	assert.Equal(t, budget.ModeThrottle, updated.Mode)
	assert.Equal(t, []string{"updated"}, updated.Tags)

	t.Run("unknown budget", func(t *testing.T) {
		_, err := env.budgetSvc.UpdateBudget(ctx, orgID, uuid.New(), UpdateBudgetRequest{Name: &name})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		empty := ""
		_, err := env.budgetSvc.UpdateBudget(ctx, orgID, resp.ID, UpdateBudgetRequest{Name: &empty})
		require.Error(t, err)
	})
}

func TestBudgetService_DeleteBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("soft delete archives", func(t *testing.T) {
		resp := env.createBudget(t, orgID, 1000, CreateBudgetRequest{Name: "Soft"})

		require.NoError(t, env.budgetSvc.DeleteBudget(ctx, orgID, resp.ID, false))

		archived, err := env.budgetSvc.GetBudget(ctx, orgID, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, budget.StatusArchived, archived.Status)
		assert.Contains(t, archived.Metadata, "archived_at")
	})

	t.Run("hard delete removes budget and thresholds", func(t *testing.T) {
		resp := env.createBudget(t, orgID, 1000, CreateBudgetRequest{
			Name: "Hard",
			Thresholds: []ThresholdInput{
				{Percentage: decimal.NewFromInt(80), Action: budget.ActionAlert},
			},
		})

		require.NoError(t, env.budgetSvc.DeleteBudget(ctx, orgID, resp.ID, true))

		_, err := env.budgetSvc.GetBudget(ctx, orgID, resp.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		thresholds, err := env.thresholdRepo.ListByBudget(ctx, resp.ID)
		require.NoError(t, err)
		assert.Empty(t, thresholds)
	})

	t.Run("wrong organization", func(t *testing.T) {
		resp := env.createBudget(t, orgID, 1000, CreateBudgetRequest{Name: "Scoped"})
		err := env.budgetSvc.DeleteBudget(ctx, uuid.New(), resp.ID, true)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestBudgetService_ListBudgets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	env.createBudget(t, orgID, 1000, CreateBudgetRequest{Name: "Org wide"})
	teamID := uuid.New()
	env.createBudget(t, orgID, 500, CreateBudgetRequest{
		Name:   "Team slice",
		Type:   budget.TypeTeam,
		TeamID: &teamID,
	})

	t.Run("lists all", func(t *testing.T) {
		page, err := env.budgetSvc.ListBudgets(ctx, orgID, ListBudgetsRequest{})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("filters by type", func(t *testing.T) {
		teamType := budget.TypeTeam
		req := ListBudgetsRequest{}
		req.Type = &teamType
		page, err := env.budgetSvc.ListBudgets(ctx, orgID, req)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Team slice", page.Items[0].Name)
	})

	t.Run("utilization filter narrows the page", func(t *testing.T) {
		// push the team budget over its limit
		teamRecord(t, env, orgID, teamID, 600, time.Now())
		_, err := env.calcEngine.RecalculateOrganizationBudgets(ctx, orgID)
		require.NoError(t, err)

		req := ListBudgetsRequest{}
		req.ExceededOnly = true
		page, err := env.budgetSvc.ListBudgets(ctx, orgID, req)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Team slice", page.Items[0].Name)
		assert.True(t, page.Items[0].CurrentPeriod.Exceeded)
	})

	t.Run("other organizations are invisible", func(t *testing.T) {
		page, err := env.budgetSvc.ListBudgets(ctx, uuid.New(), ListBudgetsRequest{})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})
}

func TestBudgetService_GetBudgetStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	env.createBudget(t, orgID, 1000, CreateBudgetRequest{Name: "A"})
	teamID := uuid.New()
	env.createBudget(t, orgID, 1000, CreateBudgetRequest{
		Name:   "B",
		Type:   budget.TypeTeam,
		TeamID: &teamID,
	})

	env.addUsage(t, orgID, 500, time.Now())
	_, err := env.calcEngine.RecalculateOrganizationBudgets(ctx, orgID)
	require.NoError(t, err)

	stats, err := env.budgetSvc.GetBudgetStats(ctx, orgID)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalBudgets)
	assert.Equal(t, 2, stats.ActiveBudgets)
	assert.Equal(t, 1, stats.ByType["organization"])
	assert.Equal(t, 1, stats.ByType["team"])
	assert.True(t, stats.TotalAllocated.Equal(decimal.NewFromInt(2000)))
	// org budget sees all 500; the team budget sees none of it
	assert.True(t, stats.TotalSpent.Equal(decimal.NewFromInt(500)))
	assert.True(t, stats.OverallUtilization.Equal(decimal.NewFromInt(25)))
}

func TestBudgetService_GetBudgetStatsApproachingFollowsThresholds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	env.createBudget(t, orgID, 1000, CreateBudgetRequest{
		Thresholds: []ThresholdInput{
			{Percentage: decimal.NewFromInt(50), Action: budget.ActionAlert},
			{Percentage: decimal.NewFromInt(60), Action: budget.ActionAlert},
		},
	})

	env.addUsage(t, orgID, 700, time.Now())
	_, err := env.calcEngine.RecalculateOrganizationBudgets(ctx, orgID)
	require.NoError(t, err)

	// 70% is past the highest configured threshold (60)
	stats, err := env.budgetSvc.GetBudgetStats(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ApproachingCount)
	assert.Equal(t, 0, stats.ExceededCount)
}

func TestBudgetService_ThresholdLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()

	resp := env.createBudget(t, orgID, 1000, CreateBudgetRequest{})

	created, err := env.budgetSvc.CreateThreshold(ctx, orgID, resp.ID, ThresholdInput{
		Percentage: decimal.NewFromInt(90),
		Action:     budget.ActionAlert,
	})
	require.NoError(t, err)
	assert.True(t, created.AlertEnabled)

	listed, err := env.budgetSvc.GetThresholds(ctx, orgID, resp.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	t.Run("acknowledge requires a trigger", func(t *testing.T) {
		_, err := env.budgetSvc.AcknowledgeThreshold(ctx, orgID, resp.ID, created.ID, uuid.New())
		require.Error(t, err)
	})

	t.Run("acknowledge after trigger", func(t *testing.T) {
		th, err := env.thresholdRepo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.NoError(t, th.Trigger(time.Now()))
		require.NoError(t, env.thresholdRepo.Save(ctx, th))

		userID := uuid.New()
		acked, err := env.budgetSvc.AcknowledgeThreshold(ctx, orgID, resp.ID, created.ID, userID)
		require.NoError(t, err)
		require.NotNil(t, acked.AcknowledgedBy)
		assert.Equal(t, userID, *acked.AcknowledgedBy)
	})

	t.Run("delete rejects mismatched budget", func(t *testing.T) {
		other := env.createBudget(t, orgID, 500, CreateBudgetRequest{Name: "Other"})
		err := env.budgetSvc.DeleteThreshold(ctx, orgID, other.ID, created.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, env.budgetSvc.DeleteThreshold(ctx, orgID, resp.ID, created.ID))
		listed, err := env.budgetSvc.GetThresholds(ctx, orgID, resp.ID)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})
}
