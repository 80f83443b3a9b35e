package budget

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/domain/usage"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// CalculationEngine recalculates period spend from usage records and
// derives spend forecasts.
type CalculationEngine struct {
	budgetRepo    budget.BudgetRepository
	periodRepo    budget.PeriodRepository
	usageRepo     usage.RecordRepository
	periodManager *PeriodManager
	logger        *zap.Logger
}

// NewCalculationEngine creates a new CalculationEngine
func NewCalculationEngine(
	budgetRepo budget.BudgetRepository,
	periodRepo budget.PeriodRepository,
	usageRepo usage.RecordRepository,
	periodManager *PeriodManager,
	logger *zap.Logger,
) *CalculationEngine {
	return &CalculationEngine{
		budgetRepo:    budgetRepo,
		periodRepo:    periodRepo,
		usageRepo:     usageRepo,
		periodManager: periodManager,
		logger:        logger,
	}
}

// ForecastResponse is the forecast for a budget's current period
type ForecastResponse struct {
	BudgetID            uuid.UUID                 `json:"budget_id"`
	PeriodID            uuid.UUID                 `json:"period_id"`
	PeriodStart         time.Time                 `json:"period_start"`
	PeriodEnd           time.Time                 `json:"period_end"`
	CurrentSpend        decimal.Decimal           `json:"current_spend"`
	TotalBudget         decimal.Decimal           `json:"total_budget"`
	ProjectedSpend      decimal.Decimal           `json:"projected_spend"`
	AvgDailySpend       decimal.Decimal           `json:"avg_daily_spend"`
	ForecastedEndDate   *time.Time                `json:"forecasted_end_date,omitempty"`
	DaysUntilExhaustion *int                      `json:"days_until_exhaustion,omitempty"`
	Confidence          budget.ForecastConfidence `json:"confidence"`
	Trend               budget.TrendDirection     `json:"trend"`
	PercentageChange    decimal.Decimal           `json:"percentage_change"`
}

// spendScope translates a budget's scope reference into a usage query scope
func spendScope(b *budget.Budget) usage.SpendScope {
	return usage.SpendScope{
		OrganizationID: b.OrganizationID,
		TeamID:         b.Scope.TeamID,
		ProjectID:      b.Scope.ProjectID,
		CostCenterID:   b.Scope.CostCenterID,
		APIKeyID:       b.Scope.APIKeyID,
		UserID:         b.Scope.UserID,
		Provider:       b.Scope.Provider,
		Model:          b.Scope.Model,
	}
}

// UpdatePeriodSpend recomputes the period's spend from usage records and
// mirrors the result onto the budget. The recompute is a full SUM over
// the period window, so re-running it always converges.
func (e *CalculationEngine) UpdatePeriodSpend(ctx context.Context, b *budget.Budget, p *budget.Period) error {
	total, err := e.usageRepo.SumCost(ctx, spendScope(b), p.PeriodStart, p.PeriodEnd)
	if err != nil {
		return err
	}

	spend, err := valueobject.NewMoney(total, b.Amount.Currency())
	if err != nil {
		return err
	}

	now := time.Now()
	p.RecordSpend(spend, now)
	if err := e.periodRepo.Save(ctx, p); err != nil {
		return err
	}

	b.RecordSpend(spend)
	return e.budgetRepo.Save(ctx, b)
}

// RecalculateOrganizationBudgets refreshes spend on every active budget's
// current period. A failing budget does not stop the others.
func (e *CalculationEngine) RecalculateOrganizationBudgets(ctx context.Context, organizationID uuid.UUID) (int, error) {
	budgets, err := e.budgetRepo.ListActiveByOrganization(ctx, organizationID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	updated := 0
	for _, b := range budgets {
		p, _, err := e.periodManager.EnsureCurrentPeriod(ctx, b, now)
		if err != nil {
			e.logger.Warn("skipping budget during recalculation",
				zap.String("budget_id", b.GetID().String()),
				zap.Error(err))
			continue
		}
		if err := e.UpdatePeriodSpend(ctx, b, p); err != nil {
			e.logger.Warn("failed to update period spend",
				zap.String("budget_id", b.GetID().String()),
				zap.String("period_id", p.GetID().String()),
				zap.Error(err))
			continue
		}
		updated++
	}
	return updated, nil
}

// RecalculateBudget refreshes one budget's current period spend on
// demand and returns the updated period.
func (e *CalculationEngine) RecalculateBudget(ctx context.Context, organizationID, budgetID uuid.UUID) (*budget.Period, error) {
	b, err := e.budgetRepo.FindByID(ctx, organizationID, budgetID)
	if err != nil {
		return nil, err
	}
	p, _, err := e.periodManager.EnsureCurrentPeriod(ctx, b, time.Now())
	if err != nil {
		return nil, err
	}
	if err := e.UpdatePeriodSpend(ctx, b, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CalculateForecast projects the current period's spend and persists the
// projection onto the period's forecast columns.
func (e *CalculationEngine) CalculateForecast(ctx context.Context, organizationID, budgetID uuid.UUID) (*ForecastResponse, error) {
	b, err := e.budgetRepo.FindByID(ctx, organizationID, budgetID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p, _, err := e.periodManager.EnsureCurrentPeriod(ctx, b, now)
	if err != nil {
		return nil, err
	}
	if err := e.UpdatePeriodSpend(ctx, b, p); err != nil {
		return nil, err
	}

	totals, err := e.usageRepo.DailyTotals(ctx, spendScope(b), p.PeriodStart, now)
	if err != nil {
		return nil, err
	}
	daily := make([]budget.DailySpend, len(totals))
	for i, t := range totals {
		daily[i] = budget.DailySpend{Date: t.Date, Amount: t.Total}
	}

	f := budget.ComputeForecast(p, daily, now)

	p.SetForecast(f.ProjectedSpend, f.ForecastedEndDate, f.DaysUntilExhaustion)
	if err := e.periodRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	return &ForecastResponse{
		BudgetID:            b.GetID(),
		PeriodID:            p.GetID(),
		PeriodStart:         p.PeriodStart,
		PeriodEnd:           p.PeriodEnd,
		CurrentSpend:        p.SpentAmount.Amount(),
		TotalBudget:         p.TotalBudget().Amount(),
		ProjectedSpend:      f.ProjectedSpend.Amount(),
		AvgDailySpend:       f.AvgDailySpend.Amount(),
		ForecastedEndDate:   f.ForecastedEndDate,
		DaysUntilExhaustion: f.DaysUntilExhaustion,
		Confidence:          f.Confidence,
		Trend:               f.Trend,
		PercentageChange:    f.PercentageChange,
	}, nil
}

// RefreshForecasts recomputes forecasts for all active budgets of the
// organization. Used by the scheduled lifecycle run.
func (e *CalculationEngine) RefreshForecasts(ctx context.Context, organizationID uuid.UUID) (int, error) {
	budgets, err := e.budgetRepo.ListActiveByOrganization(ctx, organizationID)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, b := range budgets {
		if _, err := e.CalculateForecast(ctx, organizationID, b.GetID()); err != nil {
			e.logger.Warn("forecast refresh failed",
				zap.String("budget_id", b.GetID().String()),
				zap.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
