package budget

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// AllocationService manages manual budget adjustments and transfers
// between budgets.
type AllocationService struct {
	budgetRepo     budget.BudgetRepository
	periodRepo     budget.PeriodRepository
	adjustmentRepo budget.AdjustmentRepository
	periodManager  *PeriodManager
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	budgetRepo budget.BudgetRepository,
	periodRepo budget.PeriodRepository,
	adjustmentRepo budget.AdjustmentRepository,
	periodManager *PeriodManager,
) *AllocationService {
	return &AllocationService{
		budgetRepo:     budgetRepo,
		periodRepo:     periodRepo,
		adjustmentRepo: adjustmentRepo,
		periodManager:  periodManager,
	}
}

// CreateAdjustmentRequest carries a manual budget change
type CreateAdjustmentRequest struct {
	BudgetID  uuid.UUID             `json:"budget_id"`
	Type      budget.AdjustmentType `json:"type" binding:"required"`
	Amount    decimal.Decimal       `json:"amount" binding:"required"`
	Currency  string                `json:"currency"`
	Reason    string                `json:"reason" binding:"required"`
	CreatedBy *uuid.UUID            `json:"created_by,omitempty"`
}

// TransferRequest moves budget from one budget's current period to another's
type TransferRequest struct {
	FromBudgetID uuid.UUID       `json:"from_budget_id"`
	ToBudgetID   uuid.UUID       `json:"to_budget_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Currency     string          `json:"currency"`
	Reason       string          `json:"reason" binding:"required"`
	CreatedBy    *uuid.UUID      `json:"created_by,omitempty"`
}

// AdjustmentResponse is an adjustment audit entry
type AdjustmentResponse struct {
	ID              uuid.UUID             `json:"id"`
	BudgetID        uuid.UUID             `json:"budget_id"`
	PeriodID        uuid.UUID             `json:"period_id"`
	Type            budget.AdjustmentType `json:"type"`
	Amount          decimal.Decimal       `json:"amount"`
	Currency        string                `json:"currency"`
	Reason          string                `json:"reason"`
	RelatedBudgetID *uuid.UUID            `json:"related_budget_id,omitempty"`
	CreatedBy       *uuid.UUID            `json:"created_by,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// TransferResponse reports both legs of a completed transfer
type TransferResponse struct {
	From *AdjustmentResponse `json:"from"`
	To   *AdjustmentResponse `json:"to"`
}

func adjustmentToResponse(a *budget.Adjustment) *AdjustmentResponse {
	return &AdjustmentResponse{
		ID:              a.GetID(),
		BudgetID:        a.BudgetID,
		PeriodID:        a.PeriodID,
		Type:            a.Type,
		Amount:          a.Amount.Amount(),
		Currency:        string(a.Amount.Currency()),
		Reason:          a.Reason,
		RelatedBudgetID: a.RelatedBudgetID,
		CreatedBy:       a.CreatedBy,
		CreatedAt:       a.CreatedAt,
	}
}

// CreateAdjustment applies a manual change to the budget's current period
// and records it in the append-only audit trail.
func (s *AllocationService) CreateAdjustment(ctx context.Context, organizationID uuid.UUID, req CreateAdjustmentRequest) (*AdjustmentResponse, error) {
	if req.Type.IsTransfer() {
		return nil, shared.NewDomainError("INVALID_INPUT", "transfer adjustments must go through the transfer operation")
	}

	b, err := s.budgetRepo.FindByID(ctx, organizationID, req.BudgetID)
	if err != nil {
		return nil, err
	}

	amount, err := valueobject.NewMoney(req.Amount, s.currencyOr(req.Currency, b))
	if err != nil {
		return nil, err
	}

	p, _, err := s.periodManager.EnsureCurrentPeriod(ctx, b, time.Now())
	if err != nil {
		return nil, err
	}

	adj, err := budget.NewAdjustment(b.GetID(), p.GetID(), req.Type, amount, req.Reason)
	if err != nil {
		return nil, err
	}
	adj.CreatedBy = req.CreatedBy

	if err := p.ApplyAdjustment(adj.SignedAmount()); err != nil {
		return nil, err
	}
	if err := s.periodRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	if err := s.adjustmentRepo.Create(ctx, adj); err != nil {
		return nil, err
	}

	return adjustmentToResponse(adj), nil
}

// TransferBudget moves budget between the current periods of two budgets
// of the same organization. The transfer is rejected when it would push
// the source period's remaining balance below zero.
func (s *AllocationService) TransferBudget(ctx context.Context, organizationID uuid.UUID, req TransferRequest) (*TransferResponse, error) {
	if req.FromBudgetID == req.ToBudgetID {
		return nil, shared.NewDomainError("INVALID_INPUT", "cannot transfer a budget to itself")
	}

	from, err := s.budgetRepo.FindByID(ctx, organizationID, req.FromBudgetID)
	if err != nil {
		return nil, err
	}
	to, err := s.budgetRepo.FindByID(ctx, organizationID, req.ToBudgetID)
	if err != nil {
		return nil, err
	}

	amount, err := valueobject.NewMoney(req.Amount, s.currencyOr(req.Currency, from))
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "transfer amount must be positive")
	}

	now := time.Now()
	fromPeriod, _, err := s.periodManager.EnsureCurrentPeriod(ctx, from, now)
	if err != nil {
		return nil, err
	}
	toPeriod, _, err := s.periodManager.EnsureCurrentPeriod(ctx, to, now)
	if err != nil {
		return nil, err
	}

	enough, err := fromPeriod.Remaining().GreaterThanOrEqual(amount)
	if err != nil {
		return nil, err
	}
	if !enough {
		return nil, shared.ErrInsufficientBudget
	}

	outLeg, err := budget.NewAdjustment(from.GetID(), fromPeriod.GetID(), budget.AdjustmentTransferOut, amount, req.Reason)
	if err != nil {
		return nil, err
	}
	inLeg, err := budget.NewAdjustment(to.GetID(), toPeriod.GetID(), budget.AdjustmentTransferIn, amount, req.Reason)
	if err != nil {
		return nil, err
	}
	toID := to.GetID()
	fromID := from.GetID()
	outLeg.RelatedBudgetID = &toID
	inLeg.RelatedBudgetID = &fromID
	outLeg.CreatedBy = req.CreatedBy
	inLeg.CreatedBy = req.CreatedBy

	if err := fromPeriod.ApplyAdjustment(outLeg.SignedAmount()); err != nil {
		return nil, err
	}
	if err := toPeriod.ApplyAdjustment(inLeg.SignedAmount()); err != nil {
		return nil, err
	}

	if err := s.periodRepo.Save(ctx, fromPeriod); err != nil {
		return nil, err
	}
	if err := s.periodRepo.Save(ctx, toPeriod); err != nil {
		return nil, err
	}
	if err := s.adjustmentRepo.Create(ctx, outLeg); err != nil {
		return nil, err
	}
	if err := s.adjustmentRepo.Create(ctx, inLeg); err != nil {
		return nil, err
	}

	return &TransferResponse{
		From: adjustmentToResponse(outLeg),
		To:   adjustmentToResponse(inLeg),
	}, nil
}

// GetAdjustments returns a budget's adjustment audit trail, newest first
func (s *AllocationService) GetAdjustments(ctx context.Context, organizationID, budgetID uuid.UUID, limit int) ([]*AdjustmentResponse, error) {
	if _, err := s.budgetRepo.FindByID(ctx, organizationID, budgetID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	adjustments, err := s.adjustmentRepo.ListByBudget(ctx, budgetID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*AdjustmentResponse, len(adjustments))
	for i, a := range adjustments {
		out[i] = adjustmentToResponse(a)
	}
	return out, nil
}

func (s *AllocationService) currencyOr(currency string, b *budget.Budget) valueobject.Currency {
	if currency != "" {
		return valueobject.Currency(currency)
	}
	return b.Amount.Currency()
}
