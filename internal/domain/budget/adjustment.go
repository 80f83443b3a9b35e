package budget

import (
	"github.com/google/uuid"

	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// AdjustmentType classifies a manual change to a period's effective budget
type AdjustmentType string

const (
	AdjustmentIncrease    AdjustmentType = "increase"
	AdjustmentDecrease    AdjustmentType = "decrease"
	AdjustmentTransferIn  AdjustmentType = "transfer_in"
	AdjustmentTransferOut AdjustmentType = "transfer_out"
)

// IsValid checks whether the adjustment type is a known value
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentIncrease, AdjustmentDecrease, AdjustmentTransferIn, AdjustmentTransferOut:
		return true
	}
	return false
}

// IsTransfer reports whether the adjustment is one leg of a transfer
func (t AdjustmentType) IsTransfer() bool {
	return t == AdjustmentTransferIn || t == AdjustmentTransferOut
}

// Adjustment is an immutable audit record of a manual budget change.
// Adjustments are retained even after their budget is archived.
type Adjustment struct {
	shared.BaseEntity
	BudgetID        uuid.UUID
	PeriodID        uuid.UUID
	Type            AdjustmentType
	Amount          valueobject.Money // always positive; sign derives from Type
	Reason          string
	RelatedBudgetID *uuid.UUID // the other budget for transfer legs
	CreatedBy       *uuid.UUID
}

// NewAdjustment creates an adjustment against the given period
func NewAdjustment(budgetID, periodID uuid.UUID, adjType AdjustmentType, amount valueobject.Money, reason string) (*Adjustment, error) {
	if !adjType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid adjustment type: "+string(adjType))
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "adjustment amount must be positive")
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "adjustment reason cannot be empty")
	}
	return &Adjustment{
		BaseEntity: shared.NewBaseEntity(),
		BudgetID:   budgetID,
		PeriodID:   periodID,
		Type:       adjType,
		Amount:     amount,
		Reason:     reason,
	}, nil
}

// SignedAmount returns the amount with the sign implied by the type:
// negative for decrease and transfer_out, positive otherwise.
func (a *Adjustment) SignedAmount() valueobject.Money {
	switch a.Type {
	case AdjustmentDecrease, AdjustmentTransferOut:
		return a.Amount.Negate()
	default:
		return a.Amount
	}
}
