package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// BudgetType identifies which slice of an organization's AI spend a budget covers
type BudgetType string

const (
	TypeOrganization BudgetType = "organization"
	TypeTeam         BudgetType = "team"
	TypeProject      BudgetType = "project"
	TypeCostCenter   BudgetType = "cost_center"
	TypeProvider     BudgetType = "provider"
	TypeModel        BudgetType = "model"
	TypeAPIKey       BudgetType = "api_key"
	TypeUser         BudgetType = "user"
)

// ValidTypes lists all accepted budget types
var ValidTypes = []BudgetType{
	TypeOrganization, TypeTeam, TypeProject, TypeCostCenter,
	TypeProvider, TypeModel, TypeAPIKey, TypeUser,
}

// IsValid checks whether the budget type is a known value
func (t BudgetType) IsValid() bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// PeriodType is the recurrence cadence of a budget's accounting periods
type PeriodType string

const (
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodAnnual    PeriodType = "annual"
	PeriodCustom    PeriodType = "custom"
)

// IsValid checks whether the period type is a known value
func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodAnnual, PeriodCustom:
		return true
	}
	return false
}

// EnforcementMode controls what happens when a budget is exhausted
type EnforcementMode string

const (
	ModeSoft     EnforcementMode = "soft"     // track and alert only
	ModeHard     EnforcementMode = "hard"     // callers should reject new spend
	ModeThrottle EnforcementMode = "throttle" // callers should rate-limit spend
)

// IsValid checks whether the enforcement mode is a known value
func (m EnforcementMode) IsValid() bool {
	switch m {
	case ModeSoft, ModeHard, ModeThrottle:
		return true
	}
	return false
}

// BudgetStatus is the lifecycle state of a budget
type BudgetStatus string

const (
	StatusActive   BudgetStatus = "active"
	StatusPaused   BudgetStatus = "paused"
	StatusArchived BudgetStatus = "archived"
)

// IsValid checks whether the status is a known value
func (s BudgetStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusArchived:
		return true
	}
	return false
}

// Scope holds the reference that binds a budget to its subject.
// Exactly the field matching the budget type must be set; organization
// budgets carry no reference at all.
type Scope struct {
	TeamID       *uuid.UUID
	ProjectID    *uuid.UUID
	CostCenterID *uuid.UUID
	Provider     *string
	Model        *string
	APIKeyID     *uuid.UUID
	UserID       *uuid.UUID
}

// RolloverConfig controls how unspent budget carries into the next period
type RolloverConfig struct {
	Enabled    bool
	Percentage decimal.Decimal    // 0-100, portion of remaining that carries over
	MaxAmount  *valueobject.Money // optional cap on the carried amount
}

// Budget is the aggregate root for a spend budget and its lifecycle
type Budget struct {
	shared.OrgAggregateRoot
	Name               string
	Description        string
	Type               BudgetType
	Scope              Scope
	Amount             valueobject.Money
	PeriodType         PeriodType
	PeriodStart        *time.Time // custom cadence only
	PeriodEnd          *time.Time // custom cadence only
	Mode               EnforcementMode
	ThrottlePercentage decimal.Decimal // meaningful only when Mode == throttle
	Rollover           RolloverConfig
	Status             BudgetStatus
	CurrentSpend       valueobject.Money // mirror of the active period's spend
	Tags               []string
	Metadata           map[string]any
}

// NewBudget creates an active budget with default rollover settings
func NewBudget(organizationID uuid.UUID, name string, budgetType BudgetType, amount valueobject.Money, periodType PeriodType, mode EnforcementMode) (*Budget, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "budget name cannot be empty")
	}
	if !budgetType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid budget type: "+string(budgetType))
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "budget amount must be positive")
	}
	if !periodType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid period type: "+string(periodType))
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "invalid enforcement mode: "+string(mode))
	}

	return &Budget{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		Name:             name,
		Type:             budgetType,
		Amount:           amount,
		PeriodType:       periodType,
		Mode:             mode,
		Rollover: RolloverConfig{
			Enabled:    false,
			Percentage: decimal.NewFromInt(100),
		},
		Status:       StatusActive,
		CurrentSpend: valueobject.Zero(amount.Currency()),
		Metadata:     map[string]any{},
	}, nil
}

// refCount returns how many scope references are populated
func (s Scope) refCount() int {
	n := 0
	for _, set := range []bool{
		s.TeamID != nil,
		s.ProjectID != nil,
		s.CostCenterID != nil,
		s.Provider != nil,
		s.Model != nil,
		s.APIKeyID != nil,
		s.UserID != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// SetScope attaches the scope reference and enforces the type/scope
// pairing: exactly the field matching the budget type may be set.
func (b *Budget) SetScope(scope Scope) error {
	refs := scope.refCount()
	if b.Type == TypeOrganization {
		if refs != 0 {
			return shared.NewDomainError("INVALID_INPUT", "organization budgets cannot carry a scope reference")
		}
		b.Scope = scope
		b.UpdatedAt = time.Now()
		return nil
	}
	if refs > 1 {
		return shared.NewDomainError("INVALID_INPUT", "budgets carry exactly one scope reference")
	}

	switch b.Type {
	case TypeTeam:
		if scope.TeamID == nil {
			return shared.NewDomainError("INVALID_INPUT", "team budgets require team_id")
		}
	case TypeProject:
		if scope.ProjectID == nil {
			return shared.NewDomainError("INVALID_INPUT", "project budgets require project_id")
		}
	case TypeCostCenter:
		if scope.CostCenterID == nil {
			return shared.NewDomainError("INVALID_INPUT", "cost center budgets require cost_center_id")
		}
	case TypeProvider:
		if scope.Provider == nil || *scope.Provider == "" {
			return shared.NewDomainError("INVALID_INPUT", "provider budgets require provider")
		}
	case TypeModel:
		if scope.Model == nil || *scope.Model == "" {
			return shared.NewDomainError("INVALID_INPUT", "model budgets require model")
		}
	case TypeAPIKey:
		if scope.APIKeyID == nil {
			return shared.NewDomainError("INVALID_INPUT", "api key budgets require api_key_id")
		}
	case TypeUser:
		if scope.UserID == nil {
			return shared.NewDomainError("INVALID_INPUT", "user budgets require user_id")
		}
	}
	b.Scope = scope
	b.UpdatedAt = time.Now()
	return nil
}

// SetCustomPeriod sets explicit period bounds for custom-cadence budgets
func (b *Budget) SetCustomPeriod(start, end time.Time) error {
	if b.PeriodType != PeriodCustom {
		return shared.NewDomainError("INVALID_INPUT", "explicit period bounds are only valid for custom cadence")
	}
	if !end.After(start) {
		return shared.NewDomainError("INVALID_INPUT", "period end must be after period start")
	}
	b.PeriodStart = &start
	b.PeriodEnd = &end
	b.UpdatedAt = time.Now()
	return nil
}

// SetRollover configures how unspent budget carries over between periods
func (b *Budget) SetRollover(enabled bool, percentage decimal.Decimal, maxAmount *valueobject.Money) error {
	if percentage.IsNegative() || percentage.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_INPUT", "rollover percentage must be between 0 and 100")
	}
	if maxAmount != nil && maxAmount.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "rollover max amount cannot be negative")
	}
	b.Rollover = RolloverConfig{
		Enabled:    enabled,
		Percentage: percentage,
		MaxAmount:  maxAmount,
	}
	b.UpdatedAt = time.Now()
	return nil
}

// RolloverFrom computes the amount that carries into the next period
// given the remaining balance of the period being closed.
func (b *Budget) RolloverFrom(remaining valueobject.Money) valueobject.Money {
	if !b.Rollover.Enabled || !remaining.IsPositive() {
		return valueobject.Zero(b.Amount.Currency())
	}
	carried := remaining.CalculatePercentage(b.Rollover.Percentage)
	if b.Rollover.MaxAmount != nil {
		capped, err := carried.Min(*b.Rollover.MaxAmount)
		if err == nil {
			carried = capped
		}
	}
	return carried
}

// UpdateAmount changes the allocated amount for future periods
func (b *Budget) UpdateAmount(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_INPUT", "budget amount must be positive")
	}
	b.Amount = amount
	b.UpdatedAt = time.Now()
	return nil
}

// Archive marks the budget archived. Periods and adjustments are retained.
func (b *Budget) Archive() error {
	if b.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "budget is already archived")
	}
	b.Status = StatusArchived
	b.Metadata["archived_at"] = time.Now().UTC().Format(time.RFC3339)
	b.UpdatedAt = time.Now()
	return nil
}

// Pause suspends lifecycle processing for the budget
func (b *Budget) Pause() error {
	if b.Status != StatusActive {
		return shared.NewDomainError("INVALID_STATE", "only active budgets can be paused")
	}
	b.Status = StatusPaused
	b.UpdatedAt = time.Now()
	return nil
}

// Activate resumes a paused budget
func (b *Budget) Activate() error {
	if b.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "archived budgets cannot be reactivated")
	}
	b.Status = StatusActive
	b.UpdatedAt = time.Now()
	return nil
}

// ApplyThrottle switches the budget into throttle mode at the given percentage
func (b *Budget) ApplyThrottle(percentage decimal.Decimal) {
	if percentage.IsNegative() {
		percentage = decimal.Zero
	}
	b.Mode = ModeThrottle
	b.ThrottlePercentage = percentage
	b.UpdatedAt = time.Now()
}

// ApplyBlock switches the budget into hard enforcement mode
func (b *Budget) ApplyBlock() {
	b.Mode = ModeHard
	b.ThrottlePercentage = decimal.Zero
	b.UpdatedAt = time.Now()
}

// RecordSpend mirrors the active period's recalculated spend onto the budget
func (b *Budget) RecordSpend(spend valueobject.Money) {
	b.CurrentSpend = spend
	b.UpdatedAt = time.Now()
}

// IsActive reports whether the budget participates in lifecycle jobs
func (b *Budget) IsActive() bool {
	return b.Status == StatusActive
}
