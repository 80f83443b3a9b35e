package budget

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aicost/backend/internal/domain/shared"
)

// ListFilter narrows budget list queries. Utilization-based filters are
// applied by the service layer after period data has been joined in.
type ListFilter struct {
	shared.Filter
	Type         *BudgetType
	Status       *BudgetStatus
	TeamID       *uuid.UUID
	ProjectID    *uuid.UUID
	CostCenterID *uuid.UUID
	APIKeyID     *uuid.UUID
	UserID       *uuid.UUID
	Provider     *string
	Model        *string
}

// UtilizationFilter narrows enriched budget lists by utilization percentage
type UtilizationFilter struct {
	ExceededOnly   bool
	MinUtilization *decimal.Decimal
	MaxUtilization *decimal.Decimal
}

// PeriodStats summarizes period lifecycle counts for an organization
type PeriodStats struct {
	ActivePeriods    int64           `json:"active_periods"`
	CompletedPeriods int64           `json:"completed_periods"`
	OverspentPeriods int64           `json:"overspent_periods"`
	TotalRollover    decimal.Decimal `json:"total_rollover"`
}

// BudgetRepository persists budget aggregates
type BudgetRepository interface {
	Save(ctx context.Context, b *Budget) error
	// SaveWithLock persists the budget only if its version is unchanged,
	// returning shared.ErrConcurrencyConflict on a stale write.
	SaveWithLock(ctx context.Context, b *Budget) error
	FindByID(ctx context.Context, organizationID, id uuid.UUID) (*Budget, error)
	List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) (shared.Paginated[*Budget], error)
	ListActiveByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*Budget, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*Budget, error)
	// OrganizationsWithActiveBudgets returns the distinct organizations
	// that scheduled jobs must process.
	OrganizationsWithActiveBudgets(ctx context.Context) ([]uuid.UUID, error)
	// Delete removes the budget and cascades to its thresholds and
	// periods. Adjustments are retained.
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
}

// PeriodRepository persists accounting periods
type PeriodRepository interface {
	// Create inserts a new period, returning shared.ErrAlreadyExists when
	// a period with the same (budget_id, period_start) already exists.
	Create(ctx context.Context, p *Period) error
	Save(ctx context.Context, p *Period) error
	FindByID(ctx context.Context, id uuid.UUID) (*Period, error)
	// FindActiveByBudget returns the active period covering the instant,
	// or shared.ErrNotFound.
	FindActiveByBudget(ctx context.Context, budgetID uuid.UUID, at time.Time) (*Period, error)
	FindByBudgetAndStart(ctx context.Context, budgetID uuid.UUID, periodStart time.Time) (*Period, error)
	ListByBudget(ctx context.Context, budgetID uuid.UUID, limit int) ([]*Period, error)
	// ListExpiredActive returns active periods of the organization's
	// budgets whose end has passed.
	ListExpiredActive(ctx context.Context, organizationID uuid.UUID, before time.Time) ([]*Period, error)
	StatsByOrganization(ctx context.Context, organizationID uuid.UUID) (PeriodStats, error)
}

// ThresholdRepository persists budget thresholds
type ThresholdRepository interface {
	Save(ctx context.Context, t *Threshold) error
	FindByID(ctx context.Context, id uuid.UUID) (*Threshold, error)
	ListByBudget(ctx context.Context, budgetID uuid.UUID) ([]*Threshold, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ResetTriggersByBudget clears trigger state on all of the budget's
	// thresholds when a new period opens.
	ResetTriggersByBudget(ctx context.Context, budgetID uuid.UUID) error
}

// AdjustmentRepository persists the append-only adjustment audit trail
type AdjustmentRepository interface {
	Create(ctx context.Context, a *Adjustment) error
	ListByBudget(ctx context.Context, budgetID uuid.UUID, limit int) ([]*Adjustment, error)
}
