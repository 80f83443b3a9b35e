package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/infrastructure/persistence/models"
)

// GormBudgetRepository implements budget.BudgetRepository using GORM
type GormBudgetRepository struct {
	db *gorm.DB
}

// NewGormBudgetRepository creates a new GormBudgetRepository
func NewGormBudgetRepository(db *gorm.DB) *GormBudgetRepository {
	return &GormBudgetRepository{db: db}
}

// Save creates or updates a budget
func (r *GormBudgetRepository) Save(ctx context.Context, b *budget.Budget) error {
	model := models.BudgetModelFromDomain(b)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves the budget with optimistic locking
func (r *GormBudgetRepository) SaveWithLock(ctx context.Context, b *budget.Budget) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.BudgetModel
		if err := tx.Select("version").Where("id = ?", b.GetID()).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				model := models.BudgetModelFromDomain(b)
				return tx.Create(model).Error
			}
			return err
		}

		// domain model has already incremented the version
		expectedVersion := b.GetVersion() - 1
		if current.Version != expectedVersion {
			return shared.ErrConcurrencyConflict
		}

		model := models.BudgetModelFromDomain(b)
		result := tx.Model(model).
			Where("id = ? AND version = ?", b.GetID(), expectedVersion).
			Save(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// FindByID finds a budget by ID within an organization
func (r *GormBudgetRepository) FindByID(ctx context.Context, organizationID, id uuid.UUID) (*budget.Budget, error) {
	var model models.BudgetModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a paginated, filtered budget list for an organization
func (r *GormBudgetRepository) List(ctx context.Context, organizationID uuid.UUID, filter budget.ListFilter) (shared.Paginated[*budget.Budget], error) {
	base := r.db.WithContext(ctx).Model(&models.BudgetModel{}).
		Where("organization_id = ?", organizationID)
	base = r.applyFilter(base, filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return shared.Paginated[*budget.Budget]{}, err
	}

	sortField := ValidateSortField(filter.OrderBy, BudgetSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query := base.Order(fmt.Sprintf("%s %s", sortField, sortOrder))

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if offset := filter.Offset(); offset > 0 {
			query = query.Offset(offset)
		}
	}

	var budgetModels []models.BudgetModel
	if err := query.Find(&budgetModels).Error; err != nil {
		return shared.Paginated[*budget.Budget]{}, err
	}

	budgets := make([]*budget.Budget, len(budgetModels))
	for i := range budgetModels {
		budgets[i] = budgetModels[i].ToDomain()
	}
	return shared.NewPaginated(budgets, total, filter.Page, filter.PageSize), nil
}

func (r *GormBudgetRepository) applyFilter(query *gorm.DB, filter budget.ListFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("(name LIKE ? OR description LIKE ?)", pattern, pattern)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.TeamID != nil {
		query = query.Where("team_id = ?", *filter.TeamID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.CostCenterID != nil {
		query = query.Where("cost_center_id = ?", *filter.CostCenterID)
	}
	if filter.APIKeyID != nil {
		query = query.Where("api_key_id = ?", *filter.APIKeyID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Provider != nil {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if filter.Model != nil {
		query = query.Where("model = ?", *filter.Model)
	}
	return query
}

// ListActiveByOrganization returns all active budgets of an organization
func (r *GormBudgetRepository) ListActiveByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*budget.Budget, error) {
	return r.listByOrganization(ctx, organizationID, true)
}

// ListByOrganization returns all budgets of an organization
func (r *GormBudgetRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*budget.Budget, error) {
	return r.listByOrganization(ctx, organizationID, false)
}

func (r *GormBudgetRepository) listByOrganization(ctx context.Context, organizationID uuid.UUID, activeOnly bool) ([]*budget.Budget, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID)
	if activeOnly {
		query = query.Where("status = ?", budget.StatusActive)
	}

	var budgetModels []models.BudgetModel
	if err := query.Order("created_at ASC").Find(&budgetModels).Error; err != nil {
		return nil, err
	}
	budgets := make([]*budget.Budget, len(budgetModels))
	for i := range budgetModels {
		budgets[i] = budgetModels[i].ToDomain()
	}
	return budgets, nil
}

// OrganizationsWithActiveBudgets returns organizations that have at least one active budget
func (r *GormBudgetRepository) OrganizationsWithActiveBudgets(ctx context.Context) ([]uuid.UUID, error) {
	var orgIDs []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.BudgetModel{}).
		Where("status = ?", budget.StatusActive).
		Distinct("organization_id").
		Pluck("organization_id", &orgIDs).Error; err != nil {
		return nil, err
	}
	return orgIDs, nil
}

// Delete removes a budget and cascades to its thresholds and periods.
// Adjustments are retained as the audit trail.
func (r *GormBudgetRepository) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.BudgetModel{}, "organization_id = ? AND id = ?", organizationID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		if err := tx.Delete(&models.BudgetThresholdModel{}, "budget_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.BudgetPeriodModel{}, "budget_id = ?", id).Error
	})
}
