package persistence

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
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

func makePeriod(t *testing.T, budgetID uuid.UUID, start time.Time) *budget.Period {
	t.Helper()
	p, err := budget.NewPeriod(budgetID, start, start.AddDate(0, 1, 0), valueobject.NewMoneyUSDFromFloat(1000), valueobject.ZeroUSD())
	require.NoError(t, err)
	return p
}

func TestPeriodRepository_Create_DuplicateStart(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPeriodRepository(db)
	ctx := context.Background()

	budgetID := uuid.New()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, makePeriod(t, budgetID, start)))

	err := repo.Create(ctx, makePeriod(t, budgetID, start))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// a different budget may reuse the same start
	require.NoError(t, repo.Create(ctx, makePeriod(t, uuid.New(), start)))
}

func TestPeriodRepository_FindActiveByBudget(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPeriodRepository(db)
	ctx := context.Background()

	budgetID := uuid.New()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	p := makePeriod(t, budgetID, start)
	require.NoError(t, repo.Create(ctx, p))

	t.Run("covers instant inside bounds", func(t *testing.T) {
		found, err := repo.FindActiveByBudget(ctx, budgetID, start.AddDate(0, 0, 10))
		require.NoError(t, err)
		assert.Equal(t, p.GetID(), found.GetID())
	})

	t.Run("not found outside bounds", func(t *testing.T) {
		_, err := repo.FindActiveByBudget(ctx, budgetID, start.AddDate(0, 1, 5))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("closed period is not active", func(t *testing.T) {
		require.NoError(t, p.Close())
		require.NoError(t, repo.Save(ctx, p))
		_, err := repo.FindActiveByBudget(ctx, budgetID, start.AddDate(0, 0, 10))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestPeriodRepository_SaveRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPeriodRepository(db)
	ctx := context.Background()

	p := makePeriod(t, uuid.New(), time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	now := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	p.RecordSpend(valueobject.NewMoneyUSDFromFloat(123.456789), now)
	projected := valueobject.NewMoneyUSDFromFloat(370.37)
	days := 12
	endDate := now.AddDate(0, 0, days)
	p.SetForecast(projected, &endDate, &days)
	require.NoError(t, repo.Create(ctx, p))

	found, err := repo.FindByID(ctx, p.GetID())
	require.NoError(t, err)
	assert.True(t, found.SpentAmount.Amount().Equal(decimal.NewFromFloat(123.456789)))
	require.NotNil(t, found.ForecastedSpend)
	assert.True(t, found.ForecastedSpend.Equals(projected))
	require.NotNil(t, found.DaysUntilExhaustion)
	assert.Equal(t, days, *found.DaysUntilExhaustion)
	require.NotNil(t, found.LastCalculatedAt)
}

func TestPeriodRepository_ListExpiredActive(t *testing.T) {
	db := setupTestDB(t)
	budgetRepo := NewGormBudgetRepository(db)
	repo := NewGormPeriodRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	b := makeBudget(t, orgID, "Monthly", budget.TypeOrganization)
	require.NoError(t, budgetRepo.Save(ctx, b))

	julyStart := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	july := makePeriod(t, b.GetID(), julyStart)
	require.NoError(t, repo.Create(ctx, july))

	augustStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	august := makePeriod(t, b.GetID(), augustStart)
	require.NoError(t, repo.Create(ctx, august))

	now := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	expired, err := repo.ListExpiredActive(ctx, orgID, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, july.GetID(), expired[0].GetID())

	// other organizations see nothing
	expired, err = repo.ListExpiredActive(ctx, uuid.New(), now)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestPeriodRepository_StatsByOrganization(t *testing.T) {
	db := setupTestDB(t)
	budgetRepo := NewGormBudgetRepository(db)
	repo := NewGormPeriodRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	b := makeBudget(t, orgID, "Monthly", budget.TypeOrganization)
	require.NoError(t, budgetRepo.Save(ctx, b))

	june := makePeriod(t, b.GetID(), time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	june.RecordSpend(valueobject.NewMoneyUSDFromFloat(1200), time.Now())
	require.NoError(t, june.Close())
	require.NoError(t, repo.Create(ctx, june))

	july := makePeriod(t, b.GetID(), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	july.RolloverAmount = valueobject.NewMoneyUSDFromFloat(75)
	july.RecordSpend(valueobject.NewMoneyUSDFromFloat(400), time.Now())
	require.NoError(t, july.Close())
	require.NoError(t, repo.Create(ctx, july))

	august := makePeriod(t, b.GetID(), time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	august.RolloverAmount = valueobject.NewMoneyUSDFromFloat(25)
	require.NoError(t, repo.Create(ctx, august))

	stats, err := repo.StatsByOrganization(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ActivePeriods)
	assert.Equal(t, int64(1), stats.CompletedPeriods)
	assert.Equal(t, int64(1), stats.OverspentPeriods)
	assert.True(t, stats.TotalRollover.Equal(decimal.NewFromInt(100)))
}

var _ budget.PeriodRepository = (*GormPeriodRepository)(nil)
