package alert

import (
	"github.com/google/uuid"

	"github.com/aicost/backend/internal/domain/shared"
)

// EventType classifies the origin of an alert
type EventType string

const (
	TypeBudgetThreshold EventType = "budget_threshold"
)

// Severity grades how urgent an alert is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// EventStatus is the triage state of an alert event
type EventStatus string

const (
	EventStatusActive       EventStatus = "active"
	EventStatusAcknowledged EventStatus = "acknowledged"
	EventStatusResolved     EventStatus = "resolved"
)

// Event is a persisted alert. Downstream notification transports consume
// these rows; this service only writes them.
type Event struct {
	shared.BaseEntity
	OrganizationID uuid.UUID
	Type           EventType
	Severity       Severity
	Title          string
	Message        string
	Metadata       map[string]any
	Status         EventStatus
}

// NewEvent creates an active alert event
func NewEvent(organizationID uuid.UUID, eventType EventType, severity Severity, title, message string) (*Event, error) {
	if title == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "alert title cannot be empty")
	}
	return &Event{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: organizationID,
		Type:           eventType,
		Severity:       severity,
		Title:          title,
		Message:        message,
		Metadata:       map[string]any{},
		Status:         EventStatusActive,
	}, nil
}

// WithMetadata attaches structured context to the event
func (e *Event) WithMetadata(metadata map[string]any) *Event {
	if metadata != nil {
		e.Metadata = metadata
	}
	return e
}
