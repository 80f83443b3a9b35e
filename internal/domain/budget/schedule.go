package budget

import (
	"time"

	"github.com/aicost/backend/internal/domain/shared"
)

// Period bounds are half-open [start, end) and aligned to the calendar:
// weekly periods start on Monday, monthly on the 1st, quarterly on the
// quarter's first day, annual on Jan 1. All boundaries are UTC midnight.

// PeriodBoundsAt returns the bounds of the period covering the given instant.
// Custom cadence has no derivable bounds; the budget's explicit bounds apply.
func PeriodBoundsAt(periodType PeriodType, at time.Time) (time.Time, time.Time, error) {
	day := at.UTC().Truncate(24 * time.Hour)

	switch periodType {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7 // days since Monday
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil

	case PeriodMonthly:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil

	case PeriodQuarterly:
		quarter := (int(day.Month()) - 1) / 3
		start := time.Date(day.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0), nil

	case PeriodAnnual:
		start := time.Date(day.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0), nil

	case PeriodCustom:
		return time.Time{}, time.Time{}, shared.NewDomainError("INVALID_INPUT", "custom cadence budgets define their own period bounds")

	default:
		return time.Time{}, time.Time{}, shared.NewDomainError("INVALID_INPUT", "invalid period type: "+string(periodType))
	}
}

// NextPeriodBounds returns the bounds of the period that follows one
// ending at previousEnd. With half-open periods the next period starts
// exactly at the previous end.
func NextPeriodBounds(periodType PeriodType, previousEnd time.Time) (time.Time, time.Time, error) {
	return PeriodBoundsAt(periodType, previousEnd)
}
