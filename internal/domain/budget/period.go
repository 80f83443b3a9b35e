package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// PeriodStatus is the lifecycle state of an accounting period
type PeriodStatus string

const (
	PeriodStatusActive    PeriodStatus = "active"
	PeriodStatusCompleted PeriodStatus = "completed"
	PeriodStatusOverspent PeriodStatus = "overspent"
)

// Period is one accounting window of a budget. The effective budget for
// a period is allocated + rollover + adjusted; spend is recalculated
// idempotently from usage records.
type Period struct {
	shared.BaseEntity
	BudgetID            uuid.UUID
	PeriodStart         time.Time
	PeriodEnd           time.Time
	AllocatedAmount     valueobject.Money
	RolloverAmount      valueobject.Money
	AdjustedAmount      valueobject.Money
	SpentAmount         valueobject.Money
	ForecastedSpend     *valueobject.Money
	ForecastedEndDate   *time.Time
	DaysUntilExhaustion *int
	Status              PeriodStatus
	LastCalculatedAt    *time.Time
}

// NewPeriod opens an active period with the given bounds and amounts
func NewPeriod(budgetID uuid.UUID, start, end time.Time, allocated, rollover valueobject.Money) (*Period, error) {
	if !end.After(start) {
		return nil, shared.NewDomainError("INVALID_INPUT", "period end must be after period start")
	}
	currency := allocated.Currency()
	return &Period{
		BaseEntity:      shared.NewBaseEntity(),
		BudgetID:        budgetID,
		PeriodStart:     start,
		PeriodEnd:       end,
		AllocatedAmount: allocated,
		RolloverAmount:  rollover,
		AdjustedAmount:  valueobject.Zero(currency),
		SpentAmount:     valueobject.Zero(currency),
		Status:          PeriodStatusActive,
	}, nil
}

// TotalBudget returns allocated + rollover + adjusted
func (p *Period) TotalBudget() valueobject.Money {
	return p.AllocatedAmount.MustAdd(p.RolloverAmount).MustAdd(p.AdjustedAmount)
}

// Remaining returns the unspent portion of the total budget.
// Negative when the period is overspent.
func (p *Period) Remaining() valueobject.Money {
	return p.TotalBudget().MustSubtract(p.SpentAmount)
}

// Utilization returns spend as a percentage of the total budget.
// Zero when the total budget is not positive.
func (p *Period) Utilization() decimal.Decimal {
	total := p.TotalBudget()
	if !total.IsPositive() {
		return decimal.Zero
	}
	return p.SpentAmount.Amount().
		Div(total.Amount()).
		Mul(decimal.NewFromInt(100))
}

// IsExceeded reports whether spend has reached or passed the total budget
func (p *Period) IsExceeded() bool {
	ge, err := p.SpentAmount.GreaterThanOrEqual(p.TotalBudget())
	return err == nil && ge
}

// Covers reports whether the instant falls inside the period bounds
func (p *Period) Covers(at time.Time) bool {
	return !at.Before(p.PeriodStart) && at.Before(p.PeriodEnd)
}

// IsExpired reports whether the period has ended as of the given instant
func (p *Period) IsExpired(at time.Time) bool {
	return !at.Before(p.PeriodEnd)
}

// RecordSpend writes the recalculated spend and stamps the calculation time
func (p *Period) RecordSpend(spend valueobject.Money, at time.Time) {
	p.SpentAmount = spend
	p.LastCalculatedAt = &at
	p.UpdatedAt = time.Now()
}

// ApplyAdjustment folds a signed amount into the period's adjusted total
func (p *Period) ApplyAdjustment(signed valueobject.Money) error {
	adjusted, err := p.AdjustedAmount.Add(signed)
	if err != nil {
		return err
	}
	p.AdjustedAmount = adjusted
	p.UpdatedAt = time.Now()
	return nil
}

// SetForecast records forecast results on the period
func (p *Period) SetForecast(projected valueobject.Money, endDate *time.Time, daysUntilExhaustion *int) {
	p.ForecastedSpend = &projected
	p.ForecastedEndDate = endDate
	p.DaysUntilExhaustion = daysUntilExhaustion
	p.UpdatedAt = time.Now()
}

// Close finalizes an expired period. The closing status is overspent when
// spend exceeded the total budget, completed otherwise.
func (p *Period) Close() error {
	if p.Status != PeriodStatusActive {
		return shared.NewDomainError("INVALID_STATE", "period is already closed")
	}
	over, err := p.SpentAmount.GreaterThan(p.TotalBudget())
	if err != nil {
		return err
	}
	if over {
		p.Status = PeriodStatusOverspent
	} else {
		p.Status = PeriodStatusCompleted
	}
	p.UpdatedAt = time.Now()
	return nil
}
