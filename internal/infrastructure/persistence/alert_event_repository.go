package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aicost/backend/internal/domain/alert"
	"github.com/aicost/backend/internal/infrastructure/persistence/models"
)

// GormAlertEventRepository implements alert.EventRepository using GORM
type GormAlertEventRepository struct {
	db *gorm.DB
}

// NewGormAlertEventRepository creates a new GormAlertEventRepository
func NewGormAlertEventRepository(db *gorm.DB) *GormAlertEventRepository {
	return &GormAlertEventRepository{db: db}
}

// Create inserts an alert event
func (r *GormAlertEventRepository) Create(ctx context.Context, e *alert.Event) error {
	model := models.AlertEventModelFromDomain(e)
	return r.db.WithContext(ctx).Create(model).Error
}

// ListByOrganization returns the organization's alert events, newest first
func (r *GormAlertEventRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit int) ([]*alert.Event, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var eventModels []models.AlertEventModel
	if err := query.Find(&eventModels).Error; err != nil {
		return nil, err
	}
	events := make([]*alert.Event, len(eventModels))
	for i := range eventModels {
		events[i] = eventModels[i].ToDomain()
	}
	return events, nil
}

// CountActiveByOrganization counts the organization's active alert events
func (r *GormAlertEventRepository) CountActiveByOrganization(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AlertEventModel{}).
		Where("organization_id = ? AND status = ?", organizationID, alert.EventStatusActive).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
