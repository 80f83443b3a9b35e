package budget

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// PeriodManager handles the accounting period lifecycle: creation,
// rollover and closing.
type PeriodManager struct {
	budgetRepo    budget.BudgetRepository
	periodRepo    budget.PeriodRepository
	thresholdRepo budget.ThresholdRepository
	logger        *zap.Logger
}

// NewPeriodManager creates a new PeriodManager
func NewPeriodManager(
	budgetRepo budget.BudgetRepository,
	periodRepo budget.PeriodRepository,
	thresholdRepo budget.ThresholdRepository,
	logger *zap.Logger,
) *PeriodManager {
	return &PeriodManager{
		budgetRepo:    budgetRepo,
		periodRepo:    periodRepo,
		thresholdRepo: thresholdRepo,
		logger:        logger,
	}
}

// PeriodRolloverResult reports the outcome of rolling one period over
type PeriodRolloverResult struct {
	BudgetID       uuid.UUID       `json:"budget_id"`
	OldPeriodID    uuid.UUID       `json:"old_period_id"`
	NewPeriodID    uuid.UUID       `json:"new_period_id,omitempty"`
	RolloverAmount decimal.Decimal `json:"rollover_amount"`
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"`
}

// EnsureCurrentPeriod returns the budget's active period covering now,
// creating it at the cadence boundary when missing. Creation is
// idempotent: a concurrent create resolves to the winner's row.
func (m *PeriodManager) EnsureCurrentPeriod(ctx context.Context, b *budget.Budget, now time.Time) (*budget.Period, bool, error) {
	existing, err := m.periodRepo.FindActiveByBudget(ctx, b.GetID(), now)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	start, end, err := m.periodBounds(b, now)
	if err != nil {
		return nil, false, err
	}

	p, err := budget.NewPeriod(b.GetID(), start, end, b.Amount, valueobject.Zero(b.Amount.Currency()))
	if err != nil {
		return nil, false, err
	}

	if err := m.periodRepo.Create(ctx, p); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// another worker created it first
			won, findErr := m.periodRepo.FindByBudgetAndStart(ctx, b.GetID(), start)
			if findErr != nil {
				return nil, false, findErr
			}
			return won, false, nil
		}
		return nil, false, err
	}
	return p, true, nil
}

func (m *PeriodManager) periodBounds(b *budget.Budget, now time.Time) (time.Time, time.Time, error) {
	if b.PeriodType == budget.PeriodCustom {
		if b.PeriodStart == nil || b.PeriodEnd == nil {
			return time.Time{}, time.Time{}, shared.NewDomainError("INVALID_STATE", "custom cadence budget is missing period bounds")
		}
		return *b.PeriodStart, *b.PeriodEnd, nil
	}
	return budget.PeriodBoundsAt(b.PeriodType, now)
}

// EnsureAllPeriodsExist makes sure every active budget of the
// organization has a current period. Returns the number created.
func (m *PeriodManager) EnsureAllPeriodsExist(ctx context.Context, organizationID uuid.UUID) (int, error) {
	budgets, err := m.budgetRepo.ListActiveByOrganization(ctx, organizationID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	created := 0
	for _, b := range budgets {
		_, wasCreated, err := m.EnsureCurrentPeriod(ctx, b, now)
		if err != nil {
			m.logger.Warn("failed to ensure current period",
				zap.String("budget_id", b.GetID().String()),
				zap.Error(err))
			continue
		}
		if wasCreated {
			created++
		}
	}
	return created, nil
}

// ProcessExpiredPeriods closes every expired active period of the
// organization and opens the successor with rollover applied. Running
// it twice is a no-op: closed periods no longer match, and successor
// creation is guarded by the (budget_id, period_start) unique index.
func (m *PeriodManager) ProcessExpiredPeriods(ctx context.Context, organizationID uuid.UUID) ([]PeriodRolloverResult, error) {
	now := time.Now()
	expired, err := m.periodRepo.ListExpiredActive(ctx, organizationID, now)
	if err != nil {
		return nil, err
	}

	results := make([]PeriodRolloverResult, 0, len(expired))
	for _, p := range expired {
		result, err := m.rolloverPeriod(ctx, organizationID, p)
		if err != nil {
			m.logger.Warn("period rollover failed",
				zap.String("budget_id", p.BudgetID.String()),
				zap.String("period_id", p.GetID().String()),
				zap.Error(err))
			results = append(results, PeriodRolloverResult{
				BudgetID:       p.BudgetID,
				OldPeriodID:    p.GetID(),
				RolloverAmount: decimal.Zero,
				Error:          err.Error(),
			})
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (m *PeriodManager) rolloverPeriod(ctx context.Context, organizationID uuid.UUID, p *budget.Period) (PeriodRolloverResult, error) {
	b, err := m.budgetRepo.FindByID(ctx, organizationID, p.BudgetID)
	if err != nil {
		return PeriodRolloverResult{}, err
	}

	carried := b.RolloverFrom(p.Remaining())

	if err := p.Close(); err != nil {
		return PeriodRolloverResult{}, err
	}
	if err := m.periodRepo.Save(ctx, p); err != nil {
		return PeriodRolloverResult{}, err
	}

	result := PeriodRolloverResult{
		BudgetID:       b.GetID(),
		OldPeriodID:    p.GetID(),
		RolloverAmount: carried.Amount(),
		Success:        true,
	}

	// custom cadence budgets cover a single window and do not roll
	if b.PeriodType == budget.PeriodCustom {
		return result, nil
	}

	nextStart, nextEnd, err := budget.NextPeriodBounds(b.PeriodType, p.PeriodEnd)
	if err != nil {
		return PeriodRolloverResult{}, err
	}
	next, err := budget.NewPeriod(b.GetID(), nextStart, nextEnd, b.Amount, carried)
	if err != nil {
		return PeriodRolloverResult{}, err
	}

	if err := m.periodRepo.Create(ctx, next); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			won, findErr := m.periodRepo.FindByBudgetAndStart(ctx, b.GetID(), nextStart)
			if findErr != nil {
				return PeriodRolloverResult{}, findErr
			}
			next = won
		} else {
			return PeriodRolloverResult{}, err
		}
	}
	result.NewPeriodID = next.GetID()

	// re-arm thresholds for the new period
	if err := m.thresholdRepo.ResetTriggersByBudget(ctx, b.GetID()); err != nil {
		return PeriodRolloverResult{}, err
	}

	return result, nil
}

// GetPeriodHistory returns a budget's periods, newest first
func (m *PeriodManager) GetPeriodHistory(ctx context.Context, organizationID, budgetID uuid.UUID, limit int) ([]*budget.Period, error) {
	if _, err := m.budgetRepo.FindByID(ctx, organizationID, budgetID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 12
	}
	return m.periodRepo.ListByBudget(ctx, budgetID, limit)
}

// GetPeriodStats summarizes the organization's period lifecycle counts
func (m *PeriodManager) GetPeriodStats(ctx context.Context, organizationID uuid.UUID) (budget.PeriodStats, error) {
	return m.periodRepo.StatsByOrganization(ctx, organizationID)
}
