package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SpendScope selects the slice of usage a budget accounts for. Nil
// fields are unconstrained; the organization is always constrained.
type SpendScope struct {
	OrganizationID uuid.UUID
	TeamID         *uuid.UUID
	ProjectID      *uuid.UUID
	CostCenterID   *uuid.UUID
	APIKeyID       *uuid.UUID
	UserID         *uuid.UUID
	Provider       *string
	Model          *string
}

// DailyTotal is one day's summed cost within a scope
type DailyTotal struct {
	Date  time.Time
	Total decimal.Decimal
}

// RecordRepository persists and aggregates usage records
type RecordRepository interface {
	Create(ctx context.Context, r *Record) error
	CreateBatch(ctx context.Context, records []*Record) error
	// SumCost returns the total cost of records in scope with
	// recorded_at in [start, end).
	SumCost(ctx context.Context, scope SpendScope, start, end time.Time) (decimal.Decimal, error)
	// DailyTotals returns per-day cost sums in scope, ordered by day
	// ascending. Days without usage are omitted.
	DailyTotals(ctx context.Context, scope SpendScope, start, end time.Time) ([]DailyTotal, error)
}
