package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/infrastructure/persistence/models"
)

// GormAdjustmentRepository implements budget.AdjustmentRepository using GORM.
// Adjustments are append-only; there is no update or delete.
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// Create inserts a new adjustment record
func (r *GormAdjustmentRepository) Create(ctx context.Context, a *budget.Adjustment) error {
	model := models.BudgetAdjustmentModelFromDomain(a)
	return r.db.WithContext(ctx).Create(model).Error
}

// ListByBudget returns a budget's adjustments, newest first
func (r *GormAdjustmentRepository) ListByBudget(ctx context.Context, budgetID uuid.UUID, limit int) ([]*budget.Adjustment, error) {
	query := r.db.WithContext(ctx).
		Where("budget_id = ?", budgetID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var adjustmentModels []models.BudgetAdjustmentModel
	if err := query.Find(&adjustmentModels).Error; err != nil {
		return nil, err
	}
	adjustments := make([]*budget.Adjustment, len(adjustmentModels))
	for i := range adjustmentModels {
		adjustments[i] = adjustmentModels[i].ToDomain()
	}
	return adjustments, nil
}
