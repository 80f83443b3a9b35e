package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// BudgetModel is the persistence model for budgets
type BudgetModel struct {
	OrgAggregateModel
	Name               string  `gorm:"size:255;not null"`
	Description        string  `gorm:"type:text"`
	Type               string  `gorm:"size:32;not null;index"`
	TeamID             *uuid.UUID `gorm:"type:uuid;index"`
	ProjectID          *uuid.UUID `gorm:"type:uuid;index"`
	CostCenterID       *uuid.UUID `gorm:"type:uuid"`
	APIKeyID           *uuid.UUID `gorm:"type:uuid"`
	UserID             *uuid.UUID `gorm:"type:uuid"`
	Provider           *string    `gorm:"size:64"`
	Model              *string    `gorm:"size:128"`
	Amount             decimal.Decimal  `gorm:"type:numeric(20,6);not null"`
	Currency           string           `gorm:"size:3;not null;default:'USD'"`
	PeriodType         string           `gorm:"size:16;not null"`
	PeriodStart        *time.Time
	PeriodEnd          *time.Time
	Mode               string           `gorm:"size:16;not null"`
	ThrottlePercentage decimal.Decimal  `gorm:"type:numeric(8,4);not null;default:0"`
	RolloverEnabled    bool             `gorm:"not null;default:false"`
	RolloverPercentage decimal.Decimal  `gorm:"type:numeric(8,4);not null;default:100"`
	RolloverMaxAmount  *decimal.Decimal `gorm:"type:numeric(20,6)"`
	Status             string           `gorm:"size:16;not null;index"`
	CurrentSpend       decimal.Decimal  `gorm:"type:numeric(20,6);not null;default:0"`
	TagsJSON           string           `gorm:"column:tags;type:jsonb;default:'[]'"`
	MetadataJSON       string           `gorm:"column:metadata;type:jsonb;default:'{}'"`
}

// TableName returns the table name for BudgetModel
func (BudgetModel) TableName() string {
	return "budgets"
}

// ToDomain converts the model to a domain budget
func (m *BudgetModel) ToDomain() *budget.Budget {
	currency := valueobject.Currency(m.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, _ := valueobject.NewMoney(m.Amount, currency)
	spend, _ := valueobject.NewMoney(m.CurrentSpend, currency)

	b := &budget.Budget{
		Name:        m.Name,
		Description: m.Description,
		Type:        budget.BudgetType(m.Type),
		Scope: budget.Scope{
			TeamID:       m.TeamID,
			ProjectID:    m.ProjectID,
			CostCenterID: m.CostCenterID,
			Provider:     m.Provider,
			Model:        m.Model,
			APIKeyID:     m.APIKeyID,
			UserID:       m.UserID,
		},
		Amount:             amount,
		PeriodType:         budget.PeriodType(m.PeriodType),
		PeriodStart:        m.PeriodStart,
		PeriodEnd:          m.PeriodEnd,
		Mode:               budget.EnforcementMode(m.Mode),
		ThrottlePercentage: m.ThrottlePercentage,
		Rollover: budget.RolloverConfig{
			Enabled:    m.RolloverEnabled,
			Percentage: m.RolloverPercentage,
		},
		Status:       budget.BudgetStatus(m.Status),
		CurrentSpend: spend,
		Tags:         make([]string, 0),
		Metadata:     map[string]any{},
	}
	m.PopulateOrgAggregateRoot(&b.OrgAggregateRoot)

	if m.RolloverMaxAmount != nil {
		maxAmount, err := valueobject.NewMoney(*m.RolloverMaxAmount, currency)
		if err == nil {
			b.Rollover.MaxAmount = &maxAmount
		}
	}
	if m.TagsJSON != "" && m.TagsJSON != "[]" {
		var tags []string
		if err := json.Unmarshal([]byte(m.TagsJSON), &tags); err == nil {
			b.Tags = tags
		}
	}
	if m.MetadataJSON != "" && m.MetadataJSON != "{}" {
		var metadata map[string]any
		if err := json.Unmarshal([]byte(m.MetadataJSON), &metadata); err == nil {
			b.Metadata = metadata
		}
	}
	return b
}

// BudgetModelFromDomain converts a domain budget to the persistence model
func BudgetModelFromDomain(b *budget.Budget) *BudgetModel {
	m := &BudgetModel{
		Name:               b.Name,
		Description:        b.Description,
		Type:               string(b.Type),
		TeamID:             b.Scope.TeamID,
		ProjectID:          b.Scope.ProjectID,
		CostCenterID:       b.Scope.CostCenterID,
		APIKeyID:           b.Scope.APIKeyID,
		UserID:             b.Scope.UserID,
		Provider:           b.Scope.Provider,
		Model:              b.Scope.Model,
		Amount:             b.Amount.Amount(),
		Currency:           string(b.Amount.Currency()),
		PeriodType:         string(b.PeriodType),
		PeriodStart:        b.PeriodStart,
		PeriodEnd:          b.PeriodEnd,
		Mode:               string(b.Mode),
		ThrottlePercentage: b.ThrottlePercentage,
		RolloverEnabled:    b.Rollover.Enabled,
		RolloverPercentage: b.Rollover.Percentage,
		Status:             string(b.Status),
		CurrentSpend:       b.CurrentSpend.Amount(),
		TagsJSON:           "[]",
		MetadataJSON:       "{}",
	}
	m.FromDomainOrgAggregateRoot(b.OrgAggregateRoot)

	if b.Rollover.MaxAmount != nil {
		maxAmount := b.Rollover.MaxAmount.Amount()
		m.RolloverMaxAmount = &maxAmount
	}
	if len(b.Tags) > 0 {
		if data, err := json.Marshal(b.Tags); err == nil {
			m.TagsJSON = string(data)
		}
	}
	if len(b.Metadata) > 0 {
		if data, err := json.Marshal(b.Metadata); err == nil {
			m.MetadataJSON = string(data)
		}
	}
	return m
}

// BudgetPeriodModel is the persistence model for budget periods
type BudgetPeriodModel struct {
	BaseModel
	BudgetID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budget_period_start"`
	PeriodStart         time.Time       `gorm:"not null;uniqueIndex:idx_budget_period_start"`
	PeriodEnd           time.Time       `gorm:"not null"`
	AllocatedAmount     decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	RolloverAmount      decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	AdjustedAmount      decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	SpentAmount         decimal.Decimal `gorm:"type:numeric(20,6);not null;default:0"`
	Currency            string          `gorm:"size:3;not null;default:'USD'"`
	ForecastedSpend     *decimal.Decimal `gorm:"type:numeric(20,6)"`
	ForecastedEndDate   *time.Time
	DaysUntilExhaustion *int
	Status              string `gorm:"size:16;not null;index"`
	LastCalculatedAt    *time.Time
}

// TableName returns the table name for BudgetPeriodModel
func (BudgetPeriodModel) TableName() string {
	return "budget_periods"
}

// ToDomain converts the model to a domain period
func (m *BudgetPeriodModel) ToDomain() *budget.Period {
	currency := valueobject.Currency(m.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	allocated, _ := valueobject.NewMoney(m.AllocatedAmount, currency)
	rollover, _ := valueobject.NewMoney(m.RolloverAmount, currency)
	adjusted, _ := valueobject.NewMoney(m.AdjustedAmount, currency)
	spent, _ := valueobject.NewMoney(m.SpentAmount, currency)

	p := &budget.Period{
		BaseEntity:          m.BaseModel.ToDomain(),
		BudgetID:            m.BudgetID,
		PeriodStart:         m.PeriodStart,
		PeriodEnd:           m.PeriodEnd,
		AllocatedAmount:     allocated,
		RolloverAmount:      rollover,
		AdjustedAmount:      adjusted,
		SpentAmount:         spent,
		ForecastedEndDate:   m.ForecastedEndDate,
		DaysUntilExhaustion: m.DaysUntilExhaustion,
		Status:              budget.PeriodStatus(m.Status),
		LastCalculatedAt:    m.LastCalculatedAt,
	}
	if m.ForecastedSpend != nil {
		forecasted, err := valueobject.NewMoney(*m.ForecastedSpend, currency)
		if err == nil {
			p.ForecastedSpend = &forecasted
		}
	}
	return p
}

// BudgetPeriodModelFromDomain converts a domain period to the persistence model
func BudgetPeriodModelFromDomain(p *budget.Period) *BudgetPeriodModel {
	m := &BudgetPeriodModel{
		BudgetID:            p.BudgetID,
		PeriodStart:         p.PeriodStart,
		PeriodEnd:           p.PeriodEnd,
		AllocatedAmount:     p.AllocatedAmount.Amount(),
		RolloverAmount:      p.RolloverAmount.Amount(),
		AdjustedAmount:      p.AdjustedAmount.Amount(),
		SpentAmount:         p.SpentAmount.Amount(),
		Currency:            string(p.AllocatedAmount.Currency()),
		ForecastedEndDate:   p.ForecastedEndDate,
		DaysUntilExhaustion: p.DaysUntilExhaustion,
		Status:              string(p.Status),
		LastCalculatedAt:    p.LastCalculatedAt,
	}
	m.FromDomainBaseEntity(p.BaseEntity)

	if p.ForecastedSpend != nil {
		forecasted := p.ForecastedSpend.Amount()
		m.ForecastedSpend = &forecasted
	}
	return m
}

// BudgetThresholdModel is the persistence model for budget thresholds
type BudgetThresholdModel struct {
	BaseModel
	BudgetID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Percentage     decimal.Decimal `gorm:"type:numeric(8,4);not null"`
	Action         string          `gorm:"size:16;not null"`
	AlertEnabled   bool            `gorm:"not null;default:true"`
	TriggeredAt    *time.Time
	AcknowledgedAt *time.Time
	AcknowledgedBy *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for BudgetThresholdModel
func (BudgetThresholdModel) TableName() string {
	return "budget_thresholds"
}

// ToDomain converts the model to a domain threshold
func (m *BudgetThresholdModel) ToDomain() *budget.Threshold {
	return &budget.Threshold{
		BaseEntity:     m.BaseModel.ToDomain(),
		BudgetID:       m.BudgetID,
		Percentage:     m.Percentage,
		Action:         budget.ThresholdAction(m.Action),
		AlertEnabled:   m.AlertEnabled,
		TriggeredAt:    m.TriggeredAt,
		AcknowledgedAt: m.AcknowledgedAt,
		AcknowledgedBy: m.AcknowledgedBy,
	}
}

// BudgetThresholdModelFromDomain converts a domain threshold to the persistence model
func BudgetThresholdModelFromDomain(t *budget.Threshold) *BudgetThresholdModel {
	m := &BudgetThresholdModel{
		BudgetID:       t.BudgetID,
		Percentage:     t.Percentage,
		Action:         string(t.Action),
		AlertEnabled:   t.AlertEnabled,
		TriggeredAt:    t.TriggeredAt,
		AcknowledgedAt: t.AcknowledgedAt,
		AcknowledgedBy: t.AcknowledgedBy,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// BudgetAdjustmentModel is the persistence model for budget adjustments
type BudgetAdjustmentModel struct {
	BaseModel
	BudgetID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PeriodID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type            string          `gorm:"column:adjustment_type;size:16;not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Currency        string          `gorm:"size:3;not null;default:'USD'"`
	Reason          string          `gorm:"type:text;not null"`
	RelatedBudgetID *uuid.UUID      `gorm:"type:uuid"`
	CreatedBy       *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for BudgetAdjustmentModel
func (BudgetAdjustmentModel) TableName() string {
	return "budget_adjustments"
}

// ToDomain converts the model to a domain adjustment
func (m *BudgetAdjustmentModel) ToDomain() *budget.Adjustment {
	currency := valueobject.Currency(m.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, _ := valueobject.NewMoney(m.Amount, currency)

	return &budget.Adjustment{
		BaseEntity:      m.BaseModel.ToDomain(),
		BudgetID:        m.BudgetID,
		PeriodID:        m.PeriodID,
		Type:            budget.AdjustmentType(m.Type),
		Amount:          amount,
		Reason:          m.Reason,
		RelatedBudgetID: m.RelatedBudgetID,
		CreatedBy:       m.CreatedBy,
	}
}

// BudgetAdjustmentModelFromDomain converts a domain adjustment to the persistence model
func BudgetAdjustmentModelFromDomain(a *budget.Adjustment) *BudgetAdjustmentModel {
	m := &BudgetAdjustmentModel{
		BudgetID:        a.BudgetID,
		PeriodID:        a.PeriodID,
		Type:            string(a.Type),
		Amount:          a.Amount.Amount(),
		Currency:        string(a.Amount.Currency()),
		Reason:          a.Reason,
		RelatedBudgetID: a.RelatedBudgetID,
		CreatedBy:       a.CreatedBy,
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	return m
}
