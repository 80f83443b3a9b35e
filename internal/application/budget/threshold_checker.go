package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aicost/backend/internal/domain/alert"
	"github.com/aicost/backend/internal/domain/budget"
)

// ThresholdChecker evaluates thresholds against period utilization,
// records alert events and applies enforcement actions.
type ThresholdChecker struct {
	budgetRepo    budget.BudgetRepository
	periodRepo    budget.PeriodRepository
	thresholdRepo budget.ThresholdRepository
	alertRepo     alert.EventRepository
	periodManager *PeriodManager
	logger        *zap.Logger
}

// NewThresholdChecker creates a new ThresholdChecker
func NewThresholdChecker(
	budgetRepo budget.BudgetRepository,
	periodRepo budget.PeriodRepository,
	thresholdRepo budget.ThresholdRepository,
	alertRepo alert.EventRepository,
	periodManager *PeriodManager,
	logger *zap.Logger,
) *ThresholdChecker {
	return &ThresholdChecker{
		budgetRepo:    budgetRepo,
		periodRepo:    periodRepo,
		thresholdRepo: thresholdRepo,
		alertRepo:     alertRepo,
		periodManager: periodManager,
		logger:        logger,
	}
}

// AlertStatusResponse summarizes an organization's budget alert posture
type AlertStatusResponse struct {
	Status            string          `json:"status"` // ok, approaching, exceeded
	ActiveAlerts      int64           `json:"active_alerts"`
	ExceededBudgets   int             `json:"exceeded_budgets"`
	ApproachingLimits int             `json:"approaching_limits"`
	MaxUtilization    decimal.Decimal `json:"max_utilization"`
}

var oneHundred = decimal.NewFromInt(100)

// defaultApproachingAt applies when a budget has no threshold below 100%
var defaultApproachingAt = decimal.NewFromInt(80)

// approachingCutoff is the utilization at which a budget counts as
// approaching its limit: the highest configured threshold below 100%.
func approachingCutoff(thresholds []*budget.Threshold) decimal.Decimal {
	cutoff := defaultApproachingAt
	found := false
	for _, th := range thresholds {
		if th.Percentage.GreaterThanOrEqual(oneHundred) {
			continue
		}
		if !found || th.Percentage.GreaterThan(cutoff) {
			cutoff = th.Percentage
			found = true
		}
	}
	return cutoff
}

// CheckBudgetThresholds fires every armed threshold the period's
// utilization has crossed. Each threshold fires at most once per period.
// Returns the number of thresholds triggered.
func (c *ThresholdChecker) CheckBudgetThresholds(ctx context.Context, b *budget.Budget, p *budget.Period) (int, error) {
	thresholds, err := c.thresholdRepo.ListByBudget(ctx, b.GetID())
	if err != nil {
		return 0, err
	}

	utilization := p.Utilization()
	now := time.Now()
	triggered := 0
	for _, th := range thresholds {
		if !th.ShouldTrigger(utilization) {
			continue
		}
		if err := th.Trigger(now); err != nil {
			continue
		}
		if err := c.thresholdRepo.Save(ctx, th); err != nil {
			return triggered, err
		}
		triggered++

		if th.AlertEnabled {
			if err := c.recordAlert(ctx, b, p, th, utilization); err != nil {
				c.logger.Warn("failed to record threshold alert",
					zap.String("budget_id", b.GetID().String()),
					zap.String("threshold_id", th.GetID().String()),
					zap.Error(err))
			}
		}

		if err := c.applyAction(ctx, b, th, utilization); err != nil {
			return triggered, err
		}
	}
	return triggered, nil
}

func (c *ThresholdChecker) recordAlert(ctx context.Context, b *budget.Budget, p *budget.Period, th *budget.Threshold, utilization decimal.Decimal) error {
	severity := alert.SeverityWarning
	if th.Percentage.GreaterThanOrEqual(oneHundred) {
		severity = alert.SeverityCritical
	}

	title := fmt.Sprintf("Budget %q reached %s%% of its limit", b.Name, th.Percentage.StringFixed(0))
	message := fmt.Sprintf("Budget %q is at %s%% utilization (%s of %s %s spent)",
		b.Name,
		utilization.StringFixed(1),
		p.SpentAmount.StringFixed(2),
		p.TotalBudget().StringFixed(2),
		p.TotalBudget().Currency())

	event, err := alert.NewEvent(b.OrganizationID, alert.TypeBudgetThreshold, severity, title, message)
	if err != nil {
		return err
	}
	event.WithMetadata(map[string]any{
		"budget_id":    b.GetID().String(),
		"period_id":    p.GetID().String(),
		"threshold_id": th.GetID().String(),
		"percentage":   th.Percentage.String(),
		"utilization":  utilization.StringFixed(2),
		"action":       string(th.Action),
	})
	return c.alertRepo.Create(ctx, event)
}

func (c *ThresholdChecker) applyAction(ctx context.Context, b *budget.Budget, th *budget.Threshold, utilization decimal.Decimal) error {
	switch th.Action {
	case budget.ActionThrottle:
		// throttle down to the budget headroom that is left
		b.ApplyThrottle(oneHundred.Sub(utilization))
	case budget.ActionBlock:
		b.ApplyBlock()
	default:
		return nil
	}
	return c.budgetRepo.Save(ctx, b)
}

// CheckOrganizationThresholds evaluates thresholds for every active
// budget of the organization. Returns the total number triggered.
func (c *ThresholdChecker) CheckOrganizationThresholds(ctx context.Context, organizationID uuid.UUID) (int, error) {
	budgets, err := c.budgetRepo.ListActiveByOrganization(ctx, organizationID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	total := 0
	for _, b := range budgets {
		p, _, err := c.periodManager.EnsureCurrentPeriod(ctx, b, now)
		if err != nil {
			c.logger.Warn("skipping budget during threshold check",
				zap.String("budget_id", b.GetID().String()),
				zap.Error(err))
			continue
		}
		triggered, err := c.CheckBudgetThresholds(ctx, b, p)
		if err != nil {
			c.logger.Warn("threshold check failed",
				zap.String("budget_id", b.GetID().String()),
				zap.Error(err))
			continue
		}
		total += triggered
	}
	return total, nil
}

// GetAlertStatus reports whether any budget is exceeded or approaching
// its limit, along with the active alert count.
func (c *ThresholdChecker) GetAlertStatus(ctx context.Context, organizationID uuid.UUID) (*AlertStatusResponse, error) {
	budgets, err := c.budgetRepo.ListActiveByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	activeAlerts, err := c.alertRepo.CountActiveByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	resp := &AlertStatusResponse{
		Status:         "ok",
		ActiveAlerts:   activeAlerts,
		MaxUtilization: decimal.Zero,
	}

	for _, b := range budgets {
		p, err := c.periodRepo.FindActiveByBudget(ctx, b.GetID(), now)
		if err != nil {
			continue
		}
		thresholds, err := c.thresholdRepo.ListByBudget(ctx, b.GetID())
		if err != nil {
			thresholds = nil
		}
		utilization := p.Utilization()
		if utilization.GreaterThan(resp.MaxUtilization) {
			resp.MaxUtilization = utilization
		}
		switch {
		case utilization.GreaterThanOrEqual(oneHundred):
			resp.ExceededBudgets++
		case utilization.GreaterThanOrEqual(approachingCutoff(thresholds)):
			resp.ApproachingLimits++
		}
	}

	switch {
	case resp.ExceededBudgets > 0:
		resp.Status = "exceeded"
	case resp.ApproachingLimits > 0:
		resp.Status = "approaching"
	}
	return resp, nil
}
