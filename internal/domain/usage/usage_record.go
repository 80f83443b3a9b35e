package usage

import (
	"time"

	"github.com/google/uuid"

	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// Record is one normalized AI usage row. Records are the source of truth
// for budget spend; spend is always recomputed from them, never
// incremented in place.
type Record struct {
	shared.BaseEntity
	OrganizationID uuid.UUID
	Provider       string
	Model          string
	TeamID         *uuid.UUID
	ProjectID      *uuid.UUID
	CostCenterID   *uuid.UUID
	APIKeyID       *uuid.UUID
	UserID         *uuid.UUID
	InputTokens    int64
	OutputTokens   int64
	Cost           valueobject.Money
	RecordedAt     time.Time
}

// NewRecord creates a usage record
func NewRecord(organizationID uuid.UUID, provider, model string, cost valueobject.Money, recordedAt time.Time) (*Record, error) {
	if provider == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "usage provider cannot be empty")
	}
	if model == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "usage model cannot be empty")
	}
	if cost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "usage cost cannot be negative")
	}
	return &Record{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: organizationID,
		Provider:       provider,
		Model:          model,
		Cost:           cost,
		RecordedAt:     recordedAt,
	}, nil
}
