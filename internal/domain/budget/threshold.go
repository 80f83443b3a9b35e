package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aicost/backend/internal/domain/shared"
)

// ThresholdAction is what happens when spend crosses a threshold percentage
type ThresholdAction string

const (
	ActionAlert    ThresholdAction = "alert"
	ActionThrottle ThresholdAction = "throttle"
	ActionBlock    ThresholdAction = "block"
)

// IsValid checks whether the action is a known value
func (a ThresholdAction) IsValid() bool {
	switch a {
	case ActionAlert, ActionThrottle, ActionBlock:
		return true
	}
	return false
}

// Threshold fires at most once per period when utilization reaches Percentage.
// TriggeredAt is cleared when the budget rolls into a new period.
type Threshold struct {
	shared.BaseEntity
	BudgetID       uuid.UUID
	Percentage     decimal.Decimal
	Action         ThresholdAction
	AlertEnabled   bool
	TriggeredAt    *time.Time
	AcknowledgedAt *time.Time
	AcknowledgedBy *uuid.UUID
}

// NewThreshold creates a threshold for the given budget.
// Percentages above 100 are allowed so overspend can be staged (e.g. 110, 150).
func NewThreshold(budgetID uuid.UUID, percentage decimal.Decimal, action ThresholdAction, alertEnabled bool) (*Threshold, error) {
	if !percentage.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "threshold percentage must be positive")
	}
	if percentage.GreaterThan(decimal.NewFromInt(1000)) {
		return nil, shared.NewDomainError("INVALID_INPUT", "threshold percentage is out of range")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid threshold action: "+string(action))
	}
	return &Threshold{
		BaseEntity:   shared.NewBaseEntity(),
		BudgetID:     budgetID,
		Percentage:   percentage,
		Action:       action,
		AlertEnabled: alertEnabled,
	}, nil
}

// IsTriggered reports whether the threshold has fired in the current period
func (t *Threshold) IsTriggered() bool {
	return t.TriggeredAt != nil
}

// ShouldTrigger reports whether the given utilization crosses this threshold
// and it has not fired yet this period.
func (t *Threshold) ShouldTrigger(utilization decimal.Decimal) bool {
	return !t.IsTriggered() && utilization.GreaterThanOrEqual(t.Percentage)
}

// Trigger marks the threshold as fired
func (t *Threshold) Trigger(at time.Time) error {
	if t.IsTriggered() {
		return shared.NewDomainError("INVALID_STATE", "threshold has already triggered this period")
	}
	t.TriggeredAt = &at
	t.UpdatedAt = time.Now()
	return nil
}

// Acknowledge records that a user has seen the triggered threshold
func (t *Threshold) Acknowledge(at time.Time, userID uuid.UUID) error {
	if !t.IsTriggered() {
		return shared.NewDomainError("INVALID_STATE", "threshold has not triggered")
	}
	t.AcknowledgedAt = &at
	t.AcknowledgedBy = &userID
	t.UpdatedAt = time.Now()
	return nil
}

// ResetTrigger clears trigger state so the threshold can fire again
// in the next period.
func (t *Threshold) ResetTrigger() {
	t.TriggeredAt = nil
	t.AcknowledgedAt = nil
	t.AcknowledgedBy = nil
	t.UpdatedAt = time.Now()
}
