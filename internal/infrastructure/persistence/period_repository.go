package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aicost/backend/internal/domain/budget"
	"github.com/aicost/backend/internal/domain/shared"
	"github.com/aicost/backend/internal/infrastructure/persistence/models"
)

// GormPeriodRepository implements budget.PeriodRepository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

// Create inserts a new period. The unique (budget_id, period_start) index
// makes concurrent creation safe; a conflict maps to ErrAlreadyExists.
func (r *GormPeriodRepository) Create(ctx context.Context, p *budget.Period) error {
	model := models.BudgetPeriodModelFromDomain(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Save updates an existing period
func (r *GormPeriodRepository) Save(ctx context.Context, p *budget.Period) error {
	model := models.BudgetPeriodModelFromDomain(p)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a period by its ID
func (r *GormPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*budget.Period, error) {
	var model models.BudgetPeriodModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByBudget returns the active period covering the given instant
func (r *GormPeriodRepository) FindActiveByBudget(ctx context.Context, budgetID uuid.UUID, at time.Time) (*budget.Period, error) {
	var model models.BudgetPeriodModel
	if err := r.db.WithContext(ctx).
		Where("budget_id = ? AND status = ? AND period_start <= ? AND period_end > ?",
			budgetID, budget.PeriodStatusActive, at, at).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBudgetAndStart finds a period by its budget and start date
func (r *GormPeriodRepository) FindByBudgetAndStart(ctx context.Context, budgetID uuid.UUID, periodStart time.Time) (*budget.Period, error) {
	var model models.BudgetPeriodModel
	if err := r.db.WithContext(ctx).
		Where("budget_id = ? AND period_start = ?", budgetID, periodStart).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByBudget returns the budget's periods, newest first
func (r *GormPeriodRepository) ListByBudget(ctx context.Context, budgetID uuid.UUID, limit int) ([]*budget.Period, error) {
	query := r.db.WithContext(ctx).
		Where("budget_id = ?", budgetID).
		Order("period_start DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var periodModels []models.BudgetPeriodModel
	if err := query.Find(&periodModels).Error; err != nil {
		return nil, err
	}
	periods := make([]*budget.Period, len(periodModels))
	for i := range periodModels {
		periods[i] = periodModels[i].ToDomain()
	}
	return periods, nil
}

// ListExpiredActive returns active periods of the organization's budgets
// whose end has passed.
func (r *GormPeriodRepository) ListExpiredActive(ctx context.Context, organizationID uuid.UUID, before time.Time) ([]*budget.Period, error) {
	var periodModels []models.BudgetPeriodModel
	if err := r.db.WithContext(ctx).Model(&models.BudgetPeriodModel{}).
		Joins("JOIN budgets ON budgets.id = budget_periods.budget_id").
		Where("budgets.organization_id = ?", organizationID).
		Where("budget_periods.status = ? AND budget_periods.period_end <= ?", budget.PeriodStatusActive, before).
		Find(&periodModels).Error; err != nil {
		return nil, err
	}
	periods := make([]*budget.Period, len(periodModels))
	for i := range periodModels {
		periods[i] = periodModels[i].ToDomain()
	}
	return periods, nil
}

// StatsByOrganization summarizes period lifecycle counts for an organization
func (r *GormPeriodRepository) StatsByOrganization(ctx context.Context, organizationID uuid.UUID) (budget.PeriodStats, error) {
	var rows []struct {
		Status         string
		RolloverAmount decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Model(&models.BudgetPeriodModel{}).
		Select("budget_periods.status, budget_periods.rollover_amount").
		Joins("JOIN budgets ON budgets.id = budget_periods.budget_id").
		Where("budgets.organization_id = ?", organizationID).
		Scan(&rows).Error; err != nil {
		return budget.PeriodStats{}, err
	}

	stats := budget.PeriodStats{TotalRollover: decimal.Zero}
	for _, row := range rows {
		switch budget.PeriodStatus(row.Status) {
		case budget.PeriodStatusActive:
			stats.ActivePeriods++
		case budget.PeriodStatusCompleted:
			stats.CompletedPeriods++
		case budget.PeriodStatusOverspent:
			stats.OverspentPeriods++
		}
		stats.TotalRollover = stats.TotalRollover.Add(row.RolloverAmount)
	}
	return stats, nil
}
