package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aicost/backend/internal/domain/shared/valueobject"
	"github.com/aicost/backend/internal/domain/usage"
)

// UsageRecordModel is the persistence model for AI usage records
type UsageRecordModel struct {
	BaseModel
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_usage_org_recorded"`
	Provider       string     `gorm:"size:64;not null;index"`
	Model          string     `gorm:"size:128;not null;index"`
	TeamID         *uuid.UUID `gorm:"type:uuid;index"`
	ProjectID      *uuid.UUID `gorm:"type:uuid;index"`
	CostCenterID   *uuid.UUID `gorm:"type:uuid"`
	APIKeyID       *uuid.UUID `gorm:"type:uuid"`
	UserID         *uuid.UUID `gorm:"type:uuid"`
	InputTokens    int64      `gorm:"not null;default:0"`
	OutputTokens   int64      `gorm:"not null;default:0"`
	Cost           decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Currency       string          `gorm:"size:3;not null;default:'USD'"`
	RecordedAt     time.Time       `gorm:"not null;index:idx_usage_org_recorded"`
}

// TableName returns the table name for UsageRecordModel
func (UsageRecordModel) TableName() string {
	return "usage_records"
}

// ToDomain converts the model to a domain usage record
func (m *UsageRecordModel) ToDomain() *usage.Record {
	currency := valueobject.Currency(m.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	cost, _ := valueobject.NewMoney(m.Cost, currency)

	return &usage.Record{
		BaseEntity:     m.BaseModel.ToDomain(),
		OrganizationID: m.OrganizationID,
		Provider:       m.Provider,
		Model:          m.Model,
		TeamID:         m.TeamID,
		ProjectID:      m.ProjectID,
		CostCenterID:   m.CostCenterID,
		APIKeyID:       m.APIKeyID,
		UserID:         m.UserID,
		InputTokens:    m.InputTokens,
		OutputTokens:   m.OutputTokens,
		Cost:           cost,
		RecordedAt:     m.RecordedAt,
	}
}

// UsageRecordModelFromDomain converts a domain usage record to the persistence model
func UsageRecordModelFromDomain(r *usage.Record) *UsageRecordModel {
	m := &UsageRecordModel{
		OrganizationID: r.OrganizationID,
		Provider:       r.Provider,
		Model:          r.Model,
		TeamID:         r.TeamID,
		ProjectID:      r.ProjectID,
		CostCenterID:   r.CostCenterID,
		APIKeyID:       r.APIKeyID,
		UserID:         r.UserID,
		InputTokens:    r.InputTokens,
		OutputTokens:   r.OutputTokens,
		Cost:           r.Cost.Amount(),
		Currency:       string(r.Cost.Currency()),
		RecordedAt:     r.RecordedAt,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}
