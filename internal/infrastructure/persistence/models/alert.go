package models

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/aicost/backend/internal/domain/alert"
)

// AlertEventModel is the persistence model for alert events
type AlertEventModel struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Type           string    `gorm:"size:32;not null;index"`
	Severity       string    `gorm:"size:16;not null"`
	Title          string    `gorm:"size:255;not null"`
	Message        string    `gorm:"type:text"`
	MetadataJSON   string    `gorm:"column:metadata;type:jsonb;default:'{}'"`
	Status         string    `gorm:"size:16;not null;index"`
}

// TableName returns the table name for AlertEventModel
func (AlertEventModel) TableName() string {
	return "alert_events"
}

// ToDomain converts the model to a domain alert event
func (m *AlertEventModel) ToDomain() *alert.Event {
	e := &alert.Event{
		BaseEntity:     m.BaseModel.ToDomain(),
		OrganizationID: m.OrganizationID,
		Type:           alert.EventType(m.Type),
		Severity:       alert.Severity(m.Severity),
		Title:          m.Title,
		Message:        m.Message,
		Metadata:       map[string]any{},
		Status:         alert.EventStatus(m.Status),
	}
	if m.MetadataJSON != "" && m.MetadataJSON != "{}" {
		var metadata map[string]any
		if err := json.Unmarshal([]byte(m.MetadataJSON), &metadata); err == nil {
			e.Metadata = metadata
		}
	}
	return e
}

// AlertEventModelFromDomain converts a domain alert event to the persistence model
func AlertEventModelFromDomain(e *alert.Event) *AlertEventModel {
	m := &AlertEventModel{
		OrganizationID: e.OrganizationID,
		Type:           string(e.Type),
		Severity:       string(e.Severity),
		Title:          e.Title,
		Message:        e.Message,
		MetadataJSON:   "{}",
		Status:         string(e.Status),
	}
	m.FromDomainBaseEntity(e.BaseEntity)

	if len(e.Metadata) > 0 {
		if data, err := json.Marshal(e.Metadata); err == nil {
			m.MetadataJSON = string(data)
		}
	}
	return m
}
