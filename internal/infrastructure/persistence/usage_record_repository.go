package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aicost/backend/internal/domain/usage"
	"github.com/aicost/backend/internal/infrastructure/persistence/models"
)

// GormUsageRecordRepository implements usage.RecordRepository using GORM
type GormUsageRecordRepository struct {
	db *gorm.DB
}

// NewGormUsageRecordRepository creates a new GormUsageRecordRepository
func NewGormUsageRecordRepository(db *gorm.DB) *GormUsageRecordRepository {
	return &GormUsageRecordRepository{db: db}
}

// Create inserts a usage record
func (r *GormUsageRecordRepository) Create(ctx context.Context, record *usage.Record) error {
	model := models.UsageRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// CreateBatch inserts usage records in batches
func (r *GormUsageRecordRepository) CreateBatch(ctx context.Context, records []*usage.Record) error {
	if len(records) == 0 {
		return nil
	}
	recordModels := make([]*models.UsageRecordModel, len(records))
	for i, record := range records {
		recordModels[i] = models.UsageRecordModelFromDomain(record)
	}
	return r.db.WithContext(ctx).CreateInBatches(recordModels, 500).Error
}

// SumCost returns the total cost of records in scope with recorded_at in [start, end)
func (r *GormUsageRecordRepository) SumCost(ctx context.Context, scope usage.SpendScope, start, end time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	query := r.scopedQuery(ctx, scope).
		Select("COALESCE(SUM(cost), 0) as total").
		Where("recorded_at >= ? AND recorded_at < ?", start, end)
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// DailyTotals returns per-day cost sums in scope, ordered by day ascending.
// Rows are fetched and bucketed in Go so the grouping behaves identically
// on Postgres and SQLite.
func (r *GormUsageRecordRepository) DailyTotals(ctx context.Context, scope usage.SpendScope, start, end time.Time) ([]usage.DailyTotal, error) {
	var rows []struct {
		RecordedAt time.Time
		Cost       decimal.Decimal
	}
	query := r.scopedQuery(ctx, scope).
		Select("recorded_at, cost").
		Where("recorded_at >= ? AND recorded_at < ?", start, end).
		Order("recorded_at ASC")
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]decimal.Decimal)
	days := make([]time.Time, 0)
	for _, row := range rows {
		day := row.RecordedAt.UTC().Truncate(24 * time.Hour)
		if _, seen := byDay[day]; !seen {
			days = append(days, day)
		}
		byDay[day] = byDay[day].Add(row.Cost)
	}

	totals := make([]usage.DailyTotal, len(days))
	for i, day := range days {
		totals[i] = usage.DailyTotal{Date: day, Total: byDay[day]}
	}
	return totals, nil
}

func (r *GormUsageRecordRepository) scopedQuery(ctx context.Context, scope usage.SpendScope) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.UsageRecordModel{}).
		Where("organization_id = ?", scope.OrganizationID)
	if scope.TeamID != nil {
		query = query.Where("team_id = ?", *scope.TeamID)
	}
	if scope.ProjectID != nil {
		query = query.Where("project_id = ?", *scope.ProjectID)
	}
	if scope.CostCenterID != nil {
		query = query.Where("cost_center_id = ?", *scope.CostCenterID)
	}
	if scope.APIKeyID != nil {
		query = query.Where("api_key_id = ?", *scope.APIKeyID)
	}
	if scope.UserID != nil {
		query = query.Where("user_id = ?", *scope.UserID)
	}
	if scope.Provider != nil {
		query = query.Where("provider = ?", *scope.Provider)
	}
	if scope.Model != nil {
		query = query.Where("model = ?", *scope.Model)
	}
	return query
}
