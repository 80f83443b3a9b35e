package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicost/backend/internal/domain/shared/valueobject"
	"github.com/aicost/backend/internal/domain/usage"
)

func makeUsageRecord(t *testing.T, orgID uuid.UUID, provider, model string, cost float64, at time.Time) *usage.Record {
	t.Helper()
	r, err := usage.NewRecord(orgID, provider, model, valueobject.NewMoneyUSDFromFloat(cost), at)
	require.NoError(t, err)
	return r
}

func TestUsageRecordRepository_SumCost(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageRecordRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	teamID := uuid.New()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	inScope := makeUsageRecord(t, orgID, "anthropic", "claude-sonnet", 10.50, start.AddDate(0, 0, 2))
	inScope.TeamID = &teamID
	require.NoError(t, repo.Create(ctx, inScope))

	otherTeam := makeUsageRecord(t, orgID, "anthropic", "claude-sonnet", 99, start.AddDate(0, 0, 3))
	require.NoError(t, repo.Create(ctx, otherTeam))

	beforeWindow := makeUsageRecord(t, orgID, "anthropic", "claude-sonnet", 50, start.Add(-time.Hour))
	beforeWindow.TeamID = &teamID
	require.NoError(t, repo.Create(ctx, beforeWindow))

	atEnd := makeUsageRecord(t, orgID, "anthropic", "claude-sonnet", 7, end)
	atEnd.TeamID = &teamID
	require.NoError(t, repo.Create(ctx, atEnd))

	otherOrg := makeUsageRecord(t, uuid.New(), "anthropic", "claude-sonnet", 500, start.AddDate(0, 0, 2))
	require.NoError(t, repo.Create(ctx, otherOrg))

	t.Run("team scope sums only matching rows in window", func(t *testing.T) {
		total, err := repo.SumCost(ctx, usage.SpendScope{OrganizationID: orgID, TeamID: &teamID}, start, end)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromFloat(10.50)), "got %s", total)
	})

	t.Run("org scope sums all org rows in window", func(t *testing.T) {
		total, err := repo.SumCost(ctx, usage.SpendScope{OrganizationID: orgID}, start, end)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromFloat(109.50)), "got %s", total)
	})

	t.Run("empty scope sums to zero", func(t *testing.T) {
		provider := "mistral"
		total, err := repo.SumCost(ctx, usage.SpendScope{OrganizationID: orgID, Provider: &provider}, start, end)
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})
}

func TestUsageRecordRepository_ProviderAndModelScope(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageRecordRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	require.NoError(t, repo.CreateBatch(ctx, []*usage.Record{
		makeUsageRecord(t, orgID, "anthropic", "claude-sonnet", 5, start.AddDate(0, 0, 1)),
		makeUsageRecord(t, orgID, "anthropic", "claude-haiku", 2, start.AddDate(0, 0, 1)),
		makeUsageRecord(t, orgID, "openai", "gpt-4o", 9, start.AddDate(0, 0, 1)),
	}))

	provider := "anthropic"
	total, err := repo.SumCost(ctx, usage.SpendScope{OrganizationID: orgID, Provider: &provider}, start, end)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(7)))

	model := "claude-haiku"
	total, err = repo.SumCost(ctx, usage.SpendScope{OrganizationID: orgID, Model: &model}, start, end)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(2)))
}

func TestUsageRecordRepository_DailyTotals(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormUsageRecordRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	require.NoError(t, repo.CreateBatch(ctx, []*usage.Record{
		makeUsageRecord(t, orgID, "anthropic", "claude-sonnet", 3, start.Add(9*time.Hour)),
		makeUsageRecord(t, orgID, "anthropic", "claude-sonnet", 4, start.Add(21*time.Hour)),
		makeUsageRecord(t, orgID, "anthropic", "claude-sonnet", 10, start.AddDate(0, 0, 2).Add(time.Hour)),
	}))

	totals, err := repo.DailyTotals(ctx, usage.SpendScope{OrganizationID: orgID}, start, end)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, start, totals[0].Date)
	assert.True(t, totals[0].Total.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, start.AddDate(0, 0, 2), totals[1].Date)
	assert.True(t, totals[1].Total.Equal(decimal.NewFromInt(10)))
}

var _ usage.RecordRepository = (*GormUsageRecordRepository)(nil)
