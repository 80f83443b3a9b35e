package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/infrastructure/persistence/models"
)

// GormThresholdRepository implements budget.ThresholdRepository using GORM
type GormThresholdRepository struct {
	db *gorm.DB
}

// NewGormThresholdRepository creates a new GormThresholdRepository
func NewGormThresholdRepository(db *gorm.DB) *GormThresholdRepository {
	return &GormThresholdRepository{db: db}
}

// Save creates or updates a threshold
func (r *GormThresholdRepository) Save(ctx context.Context, t *budget.Threshold) error {
	model := models.BudgetThresholdModelFromDomain(t)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a threshold by its ID
func (r *GormThresholdRepository) FindByID(ctx context.Context, id uuid.UUID) (*budget.Threshold, error) {
	var model models.BudgetThresholdModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByBudget returns a budget's thresholds ordered by percentage
func (r *GormThresholdRepository) ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]*budget.Threshold, error) {
	var thresholdModels []models.BudgetThresholdModel
	if err := r.db.WithContext(ctx).
		Where("budget_id = ?", budgetID).
		Order("percentage ASC").
		Find(&thresholdModels).Error; err != nil {
		return nil, err
	}
	thresholds := make([]*budget.Threshold, len(thresholdModels))
	for i := range thresholdModels {
		thresholds[i] = thresholdModels[i].ToDomain()
	}
	return thresholds, nil
}

// Delete removes a threshold
func (r *GormThresholdRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.BudgetThresholdModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ResetTriggersByBudget clears trigger state on all of the budget's thresholds
func (r *GormThresholdRepository) ResetTriggersByBudget(ctx context.Context, budgetID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.BudgetThresholdModel{}).
		Where("budget_id = ?", budgetID).
		Updates(map[string]any{
			"triggered_at":    nil,
			"acknowledged_at": nil,
			"acknowledged_by": nil,
		}).Error
}
