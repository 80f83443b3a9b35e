package budget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// StatsCache caches computed organization stats. Implementations must be
// safe for concurrent use; a miss is not an error.
type StatsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

const statsCacheTTL = 60 * time.Second

// BudgetService provides application-level budget management operations
type BudgetService struct {
	budgetRepo     budget.BudgetRepository
	periodRepo     budget.PeriodRepository
	thresholdRepo  budget.ThresholdRepository
	adjustmentRepo budget.AdjustmentRepository
	periodManager  *PeriodManager
	statsCache     StatsCache
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(
	budgetRepo budget.BudgetRepository,
	periodRepo budget.PeriodRepository,
	thresholdRepo budget.ThresholdRepository,
	adjustmentRepo budget.AdjustmentRepository,
	periodManager *PeriodManager,
	statsCache StatsCache,
) *BudgetService {
	return &BudgetService{
		budgetRepo:     budgetRepo,
		periodRepo:     periodRepo,
		thresholdRepo:  thresholdRepo,
		adjustmentRepo: adjustmentRepo,
		periodManager:  periodManager,
		statsCache:     statsCache,
	}
}

// ThresholdInput configures one threshold on a create or update request
type ThresholdInput struct {
	Percentage   decimal.Decimal        `json:"percentage" binding:"required"`
	Action       budget.ThresholdAction `json:"action" binding:"required"`
	AlertEnabled *bool                  `json:"alert_enabled,omitempty"`
}

// CreateBudgetRequest carries the fields to create a budget
type CreateBudgetRequest struct {
	Name               string                 `json:"name" binding:"required"`
	Description        string                 `json:"description"`
	Type               budget.BudgetType      `json:"type" binding:"required"`
	TeamID             *uuid.UUID             `json:"team_id,omitempty"`
	ProjectID          *uuid.UUID             `json:"project_id,omitempty"`
	CostCenterID       *uuid.UUID             `json:"cost_center_id,omitempty"`
	Provider           *string                `json:"provider,omitempty"`
	Model              *string                `json:"model,omitempty"`
	APIKeyID           *uuid.UUID             `json:"api_key_id,omitempty"`
	UserID             *uuid.UUID             `json:"user_id,omitempty"`
	Amount             decimal.Decimal        `json:"amount" binding:"required"`
	Currency           string                 `json:"currency"`
	PeriodType         budget.PeriodType      `json:"period_type" binding:"required"`
	PeriodStart        *time.Time             `json:"period_start,omitempty"`
	PeriodEnd          *time.Time             `json:"period_end,omitempty"`
	Mode               budget.EnforcementMode `json:"mode"`
	RolloverEnabled    bool                   `json:"rollover_enabled"`
	RolloverPercentage *decimal.Decimal       `json:"rollover_percentage,omitempty"`
	RolloverMaxAmount  *decimal.Decimal       `json:"rollover_max_amount,omitempty"`
	Thresholds         []ThresholdInput       `json:"thresholds,omitempty"`
	Tags               []string               `json:"tags,omitempty"`
	Metadata           map[string]any         `json:"metadata,omitempty"`
	CreatedBy          *uuid.UUID             `json:"created_by,omitempty"`
}

// UpdateBudgetRequest carries the mutable fields of a budget. Nil fields
// are left unchanged.
type UpdateBudgetRequest struct {
	Name               *string                 `json:"name,omitempty"`
	Description        *string                 `json:"description,omitempty"`
	Amount             *decimal.Decimal        `json:"amount,omitempty"`
	Mode               *budget.EnforcementMode `json:"mode,omitempty"`
	Status             *budget.BudgetStatus    `json:"status,omitempty"`
	RolloverEnabled    *bool                   `json:"rollover_enabled,omitempty"`
	RolloverPercentage *decimal.Decimal        `json:"rollover_percentage,omitempty"`
	RolloverMaxAmount  *decimal.Decimal        `json:"rollover_max_amount,omitempty"`
	Tags               []string                `json:"tags,omitempty"`
	Metadata           map[string]any          `json:"metadata,omitempty"`
}

// ListBudgetsRequest narrows and paginates budget listings
type ListBudgetsRequest struct {
	budget.ListFilter
	budget.UtilizationFilter
}

// PeriodSummary is the current period enrichment on a budget response
type PeriodSummary struct {
	ID              uuid.UUID           `json:"id"`
	PeriodStart     time.Time           `json:"period_start"`
	PeriodEnd       time.Time           `json:"period_end"`
	AllocatedAmount decimal.Decimal     `json:"allocated_amount"`
	RolloverAmount  decimal.Decimal     `json:"rollover_amount"`
	AdjustedAmount  decimal.Decimal     `json:"adjusted_amount"`
	SpentAmount     decimal.Decimal     `json:"spent_amount"`
	TotalBudget     decimal.Decimal     `json:"total_budget"`
	Remaining       decimal.Decimal     `json:"remaining"`
	Utilization     decimal.Decimal     `json:"utilization"`
	Exceeded        bool                `json:"exceeded"`
	Status          budget.PeriodStatus `json:"status"`
}

// NewPeriodSummary derives the API view of a period
func NewPeriodSummary(p *budget.Period) *PeriodSummary {
	return &PeriodSummary{
		ID:              p.GetID(),
		PeriodStart:     p.PeriodStart,
		PeriodEnd:       p.PeriodEnd,
		AllocatedAmount: p.AllocatedAmount.Amount(),
		RolloverAmount:  p.RolloverAmount.Amount(),
		AdjustedAmount:  p.AdjustedAmount.Amount(),
		SpentAmount:     p.SpentAmount.Amount(),
		TotalBudget:     p.TotalBudget().Amount(),
		Remaining:       p.Remaining().Amount(),
		Utilization:     p.Utilization().Round(2),
		Exceeded:        p.IsExceeded(),
		Status:          p.Status,
	}
}

// ThresholdResponse is one threshold on a budget response
type ThresholdResponse struct {
	ID             uuid.UUID              `json:"id"`
	Percentage     decimal.Decimal        `json:"percentage"`
	Action         budget.ThresholdAction `json:"action"`
	AlertEnabled   bool                   `json:"alert_enabled"`
	TriggeredAt    *time.Time             `json:"triggered_at,omitempty"`
	AcknowledgedAt *time.Time             `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *uuid.UUID             `json:"acknowledged_by,omitempty"`
}

// BudgetResponse is a budget enriched with its current period and thresholds
type BudgetResponse struct {
	ID                 uuid.UUID              `json:"id"`
	OrganizationID     uuid.UUID              `json:"organization_id"`
	Name               string                 `json:"name"`
	Description        string                 `json:"description,omitempty"`
	Type               budget.BudgetType      `json:"type"`
	TeamID             *uuid.UUID             `json:"team_id,omitempty"`
	ProjectID          *uuid.UUID             `json:"project_id,omitempty"`
	CostCenterID       *uuid.UUID             `json:"cost_center_id,omitempty"`
	Provider           *string                `json:"provider,omitempty"`
	Model              *string                `json:"model,omitempty"`
	APIKeyID           *uuid.UUID             `json:"api_key_id,omitempty"`
	UserID             *uuid.UUID             `json:"user_id,omitempty"`
	Amount             decimal.Decimal        `json:"amount"`
	Currency           string                 `json:"currency"`
	PeriodType         budget.PeriodType      `json:"period_type"`
	PeriodStart        *time.Time             `json:"period_start,omitempty"`
	PeriodEnd          *time.Time             `json:"period_end,omitempty"`
	Mode               budget.EnforcementMode `json:"mode"`
	ThrottlePercentage decimal.Decimal        `json:"throttle_percentage"`
	RolloverEnabled    bool                   `json:"rollover_enabled"`
	RolloverPercentage decimal.Decimal        `json:"rollover_percentage"`
	RolloverMaxAmount  *decimal.Decimal       `json:"rollover_max_amount,omitempty"`
	Status             budget.BudgetStatus    `json:"status"`
	CurrentSpend       decimal.Decimal        `json:"current_spend"`
	Tags               []string               `json:"tags,omitempty"`
	Metadata           map[string]any         `json:"metadata,omitempty"`
	CurrentPeriod      *PeriodSummary         `json:"current_period,omitempty"`
	Thresholds         []ThresholdResponse    `json:"thresholds,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// BudgetStatsResponse summarizes an organization's budget posture
type BudgetStatsResponse struct {
	TotalBudgets       int             `json:"total_budgets"`
	ActiveBudgets      int             `json:"active_budgets"`
	TotalAllocated     decimal.Decimal `json:"total_allocated"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	OverallUtilization decimal.Decimal `json:"overall_utilization"`
	ExceededCount      int             `json:"exceeded_count"`
	ApproachingCount   int             `json:"approaching_count"`
	ByType             map[string]int  `json:"by_type"`
}

// CreateBudget creates a budget with its thresholds and opens its first period
func (s *BudgetService) CreateBudget(ctx context.Context, organizationID uuid.UUID, req CreateBudgetRequest) (*BudgetResponse, error) {
	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = budget.ModeSoft
	}

	b, err := budget.NewBudget(organizationID, req.Name, req.Type, amount, req.PeriodType, mode)
	if err != nil {
		return nil, err
	}
	b.Description = req.Description
	b.Tags = req.Tags
	if req.Metadata != nil {
		b.Metadata = req.Metadata
	}
	if req.CreatedBy != nil {
		b.SetCreatedBy(*req.CreatedBy)
	}

	if err := b.SetScope(budget.Scope{
		TeamID:       req.TeamID,
		ProjectID:    req.ProjectID,
		CostCenterID: req.CostCenterID,
		Provider:     req.Provider,
		Model:        req.Model,
		APIKeyID:     req.APIKeyID,
		UserID:       req.UserID,
	}); err != nil {
		return nil, err
	}

	if req.PeriodType == budget.PeriodCustom {
		if req.PeriodStart == nil || req.PeriodEnd == nil {
			return nil, shared.NewDomainError("INVALID_INPUT", "custom cadence requires period_start and period_end")
		}
		if err := b.SetCustomPeriod(*req.PeriodStart, *req.PeriodEnd); err != nil {
			return nil, err
		}
	}

	if req.RolloverEnabled || req.RolloverPercentage != nil || req.RolloverMaxAmount != nil {
		pct := decimal.NewFromInt(100)
		if req.RolloverPercentage != nil {
			pct = *req.RolloverPercentage
		}
		var maxAmount *valueobject.Money
		if req.RolloverMaxAmount != nil {
			m, err := valueobject.NewMoney(*req.RolloverMaxAmount, currency)
			if err != nil {
				return nil, err
			}
			maxAmount = &m
		}
		if err := b.SetRollover(req.RolloverEnabled, pct, maxAmount); err != nil {
			return nil, err
		}
	}

	// validate thresholds up front so a bad one aborts before persisting
	thresholds := make([]*budget.Threshold, 0, len(req.Thresholds))
	for _, in := range req.Thresholds {
		alertEnabled := true
		if in.AlertEnabled != nil {
			alertEnabled = *in.AlertEnabled
		}
		th, err := budget.NewThreshold(b.GetID(), in.Percentage, in.Action, alertEnabled)
		if err != nil {
			return nil, err
		}
		thresholds = append(thresholds, th)
	}

	if err := s.budgetRepo.Save(ctx, b); err != nil {
		return nil, err
	}
	for _, th := range thresholds {
		if err := s.thresholdRepo.Save(ctx, th); err != nil {
			return nil, err
		}
	}

	p, _, err := s.periodManager.EnsureCurrentPeriod(ctx, b, time.Now())
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, organizationID)
	return s.toResponse(b, p, thresholds), nil
}

// GetBudget returns the budget enriched with its current period and thresholds
func (s *BudgetService) GetBudget(ctx context.Context, organizationID, id uuid.UUID) (*BudgetResponse, error) {
	b, err := s.budgetRepo.FindByID(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, b)
}

// UpdateBudget applies partial changes under optimistic concurrency control
func (s *BudgetService) UpdateBudget(ctx context.Context, organizationID, id uuid.UUID, req UpdateBudgetRequest) (*BudgetResponse, error) {
	b, err := s.budgetRepo.FindByID(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, shared.NewDomainError("INVALID_INPUT", "budget name cannot be empty")
		}
		b.Name = *req.Name
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Amount != nil {
		amount, err := valueobject.NewMoney(*req.Amount, b.Amount.Currency())
		if err != nil {
			return nil, err
		}
		if err := b.UpdateAmount(amount); err != nil {
			return nil, err
		}
	}
	if req.Mode != nil {
		if !req.Mode.IsValid() {
			return nil, shared.NewDomainError("INVALID_INPUT", "invalid enforcement mode: "+string(*req.Mode))
		}
		b.Mode = *req.Mode
	}
	if req.Status != nil {
		if err := s.applyStatusChange(b, *req.Status); err != nil {
			return nil, err
		}
	}
	if req.RolloverEnabled != nil || req.RolloverPercentage != nil || req.RolloverMaxAmount != nil {
		enabled := b.Rollover.Enabled
		if req.RolloverEnabled != nil {
			enabled = *req.RolloverEnabled
		}
		pct := b.Rollover.Percentage
		if req.RolloverPercentage != nil {
			pct = *req.RolloverPercentage
		}
		maxAmount := b.Rollover.MaxAmount
		if req.RolloverMaxAmount != nil {
			m, err := valueobject.NewMoney(*req.RolloverMaxAmount, b.Amount.Currency())
			if err != nil {
				return nil, err
			}
			maxAmount = &m
		}
		if err := b.SetRollover(enabled, pct, maxAmount); err != nil {
			return nil, err
		}
	}
	if req.Tags != nil {
		b.Tags = req.Tags
	}
	if req.Metadata != nil {
		b.Metadata = req.Metadata
	}
	b.IncrementVersion()

	if err := s.budgetRepo.SaveWithLock(ctx, b); err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, organizationID)
	return s.enrich(ctx, b)
}

func (s *BudgetService) applyStatusChange(b *budget.Budget, status budget.BudgetStatus) error {
	switch status {
	case budget.StatusActive:
		return b.Activate()
	case budget.StatusPaused:
		return b.Pause()
	case budget.StatusArchived:
		return b.Archive()
	default:
		return shared.NewDomainError("INVALID_INPUT", "invalid budget status: "+string(status))
	}
}

// DeleteBudget removes the budget. With hard=false the budget is archived
// and all history is retained; with hard=true the budget, its thresholds
// and periods are removed while adjustments survive as audit records.
func (s *BudgetService) DeleteBudget(ctx context.Context, organizationID, id uuid.UUID, hard bool) error {
	b, err := s.budgetRepo.FindByID(ctx, organizationID, id)
	if err != nil {
		return err
	}

	if hard {
		if err := s.budgetRepo.Delete(ctx, organizationID, id); err != nil {
			return err
		}
	} else {
		if err := b.Archive(); err != nil {
			return err
		}
		if err := s.budgetRepo.Save(ctx, b); err != nil {
			return err
		}
	}

	s.invalidateStats(ctx, organizationID)
	return nil
}

// ListBudgets returns a page of enriched budgets. Utilization filters are
// applied after enrichment, so they narrow the returned page.
func (s *BudgetService) ListBudgets(ctx context.Context, organizationID uuid.UUID, req ListBudgetsRequest) (shared.Paginated[*BudgetResponse], error) {
	page, err := s.budgetRepo.List(ctx, organizationID, req.ListFilter)
	if err != nil {
		return shared.Paginated[*BudgetResponse]{}, err
	}

	items := make([]*BudgetResponse, 0, len(page.Items))
	for _, b := range page.Items {
		resp, err := s.enrich(ctx, b)
		if err != nil {
			return shared.Paginated[*BudgetResponse]{}, err
		}
		if !matchesUtilization(resp, req.UtilizationFilter) {
			continue
		}
		items = append(items, resp)
	}

	return shared.Paginated[*BudgetResponse]{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		HasMore:  page.HasMore,
	}, nil
}

func matchesUtilization(resp *BudgetResponse, f budget.UtilizationFilter) bool {
	if !f.ExceededOnly && f.MinUtilization == nil && f.MaxUtilization == nil {
		return true
	}
	if resp.CurrentPeriod == nil {
		return false
	}
	p := resp.CurrentPeriod
	if f.ExceededOnly && !p.Exceeded {
		return false
	}
	if f.MinUtilization != nil && p.Utilization.LessThan(*f.MinUtilization) {
		return false
	}
	if f.MaxUtilization != nil && p.Utilization.GreaterThan(*f.MaxUtilization) {
		return false
	}
	return true
}

// GetBudgetStats aggregates the organization's budget posture, cached briefly
func (s *BudgetService) GetBudgetStats(ctx context.Context, organizationID uuid.UUID) (*BudgetStatsResponse, error) {
	key := statsCacheKey(organizationID)
	if s.statsCache != nil {
		if raw, ok := s.statsCache.Get(ctx, key); ok {
			var cached BudgetStatsResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	budgets, err := s.budgetRepo.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stats := &BudgetStatsResponse{
		TotalAllocated: decimal.Zero,
		TotalSpent:     decimal.Zero,
		ByType:         map[string]int{},
	}

	for _, b := range budgets {
		stats.TotalBudgets++
		stats.ByType[string(b.Type)]++
		if !b.IsActive() {
			continue
		}
		stats.ActiveBudgets++

		p, err := s.periodRepo.FindActiveByBudget(ctx, b.GetID(), now)
		if err != nil {
			continue
		}
		stats.TotalAllocated = stats.TotalAllocated.Add(p.TotalBudget().Amount())
		stats.TotalSpent = stats.TotalSpent.Add(p.SpentAmount.Amount())

		thresholds, err := s.thresholdRepo.ListByBudget(ctx, b.GetID())
		if err != nil {
			thresholds = nil
		}
		utilization := p.Utilization()
		switch {
		case utilization.GreaterThanOrEqual(oneHundred):
			stats.ExceededCount++
		case utilization.GreaterThanOrEqual(approachingCutoff(thresholds)):
			stats.ApproachingCount++
		}
	}

	if stats.TotalAllocated.IsPositive() {
		stats.OverallUtilization = stats.TotalSpent.
			Div(stats.TotalAllocated).
			Mul(oneHundred).
			Round(2)
	} else {
		stats.OverallUtilization = decimal.Zero
	}

	if s.statsCache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			s.statsCache.Set(ctx, key, raw, statsCacheTTL)
		}
	}
	return stats, nil
}

// CreateThreshold adds a threshold to an existing budget
func (s *BudgetService) CreateThreshold(ctx context.Context, organizationID, budgetID uuid.UUID, in ThresholdInput) (*ThresholdResponse, error) {
	b, err := s.budgetRepo.FindByID(ctx, organizationID, budgetID)
	if err != nil {
		return nil, err
	}

	alertEnabled := true
	if in.AlertEnabled != nil {
		alertEnabled = *in.AlertEnabled
	}
	th, err := budget.NewThreshold(b.GetID(), in.Percentage, in.Action, alertEnabled)
	if err != nil {
		return nil, err
	}
	if err := s.thresholdRepo.Save(ctx, th); err != nil {
		return nil, err
	}
	resp := thresholdToResponse(th)
	return &resp, nil
}

// GetThresholds lists a budget's thresholds ordered by percentage
func (s *BudgetService) GetThresholds(ctx context.Context, organizationID, budgetID uuid.UUID) ([]ThresholdResponse, error) {
	if _, err := s.budgetRepo.FindByID(ctx, organizationID, budgetID); err != nil {
		return nil, err
	}
	thresholds, err := s.thresholdRepo.ListByBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	out := make([]ThresholdResponse, len(thresholds))
	for i, th := range thresholds {
		out[i] = thresholdToResponse(th)
	}
	return out, nil
}

// DeleteThreshold removes one threshold from a budget
func (s *BudgetService) DeleteThreshold(ctx context.Context, organizationID, budgetID, thresholdID uuid.UUID) error {
	if _, err := s.budgetRepo.FindByID(ctx, organizationID, budgetID); err != nil {
		return err
	}
	th, err := s.thresholdRepo.FindByID(ctx, thresholdID)
	if err != nil {
		return err
	}
	if th.BudgetID != budgetID {
		return shared.ErrNotFound
	}
	return s.thresholdRepo.Delete(ctx, thresholdID)
}

// AcknowledgeThreshold records that a user has seen a triggered threshold
func (s *BudgetService) AcknowledgeThreshold(ctx context.Context, organizationID, budgetID, thresholdID, userID uuid.UUID) (*ThresholdResponse, error) {
	if _, err := s.budgetRepo.FindByID(ctx, organizationID, budgetID); err != nil {
		return nil, err
	}
	th, err := s.thresholdRepo.FindByID(ctx, thresholdID)
	if err != nil {
		return nil, err
	}
	if th.BudgetID != budgetID {
		return nil, shared.ErrNotFound
	}
	if err := th.Acknowledge(time.Now(), userID); err != nil {
		return nil, err
	}
	if err := s.thresholdRepo.Save(ctx, th); err != nil {
		return nil, err
	}
	resp := thresholdToResponse(th)
	return &resp, nil
}

func (s *BudgetService) enrich(ctx context.Context, b *budget.Budget) (*BudgetResponse, error) {
	thresholds, err := s.thresholdRepo.ListByBudget(ctx, b.GetID())
	if err != nil {
		return nil, err
	}

	p, err := s.periodRepo.FindActiveByBudget(ctx, b.GetID(), time.Now())
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		p = nil
	}
	return s.toResponse(b, p, thresholds), nil
}

func (s *BudgetService) toResponse(b *budget.Budget, p *budget.Period, thresholds []*budget.Threshold) *BudgetResponse {
	resp := &BudgetResponse{
		ID:                 b.GetID(),
		OrganizationID:     b.OrganizationID,
		Name:               b.Name,
		Description:        b.Description,
		Type:               b.Type,
		TeamID:             b.Scope.TeamID,
		ProjectID:          b.Scope.ProjectID,
		CostCenterID:       b.Scope.CostCenterID,
		Provider:           b.Scope.Provider,
		Model:              b.Scope.Model,
		APIKeyID:           b.Scope.APIKeyID,
		UserID:             b.Scope.UserID,
		Amount:             b.Amount.Amount(),
		Currency:           string(b.Amount.Currency()),
		PeriodType:         b.PeriodType,
		PeriodStart:        b.PeriodStart,
		PeriodEnd:          b.PeriodEnd,
		Mode:               b.Mode,
		ThrottlePercentage: b.ThrottlePercentage,
		RolloverEnabled:    b.Rollover.Enabled,
		RolloverPercentage: b.Rollover.Percentage,
		Status:             b.Status,
		CurrentSpend:       b.CurrentSpend.Amount(),
		Tags:               b.Tags,
		Metadata:           b.Metadata,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if b.Rollover.MaxAmount != nil {
		amount := b.Rollover.MaxAmount.Amount()
		resp.RolloverMaxAmount = &amount
	}
	if p != nil {
		resp.CurrentPeriod = NewPeriodSummary(p)
	}
	if len(thresholds) > 0 {
		resp.Thresholds = make([]ThresholdResponse, len(thresholds))
		for i, th := range thresholds {
			resp.Thresholds[i] = thresholdToResponse(th)
		}
	}
	return resp
}

func thresholdToResponse(th *budget.Threshold) ThresholdResponse {
	return ThresholdResponse{
		ID:             th.GetID(),
		Percentage:     th.Percentage,
		Action:         th.Action,
		AlertEnabled:   th.AlertEnabled,
		TriggeredAt:    th.TriggeredAt,
		AcknowledgedAt: th.AcknowledgedAt,
		AcknowledgedBy: th.AcknowledgedBy,
	}
}

func statsCacheKey(organizationID uuid.UUID) string {
	return fmt.Sprintf("budget:stats:%s", organizationID)
}

func (s *BudgetService) invalidateStats(ctx context.Context, organizationID uuid.UUID) {
	if s.statsCache != nil {
		s.statsCache.Delete(ctx, statsCacheKey(organizationID))
	}
}
