package alert

import (
	"context"

	"github.com/google/uuid"
)

// EventRepository persists alert events
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit int) ([]*Event, error)
	CountActiveByOrganization(ctx context.Context, organizationID uuid.UUID) (int64, error)
}
