package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

// ForecastConfidence grades a forecast by how much daily data backs it
type ForecastConfidence string

const (
	ConfidenceHigh   ForecastConfidence = "high"   // 14+ days of data
	ConfidenceMedium ForecastConfidence = "medium" // 7-13 days
	ConfidenceLow    ForecastConfidence = "low"    // under 7 days
)

// TrendDirection describes how recent daily spend compares to earlier spend
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// DailySpend is one day's aggregated cost within a period
type DailySpend struct {
	Date   time.Time
	Amount decimal.Decimal
}

// Forecast is a linear projection of a period's spend. It is derived
// on demand and mirrored onto the period's forecast columns.
type Forecast struct {
	ProjectedSpend      valueobject.Money
	AvgDailySpend       valueobject.Money
	ForecastedEndDate   *time.Time
	DaysUntilExhaustion *int
	Confidence          ForecastConfidence
	Trend               TrendDirection
	PercentageChange    decimal.Decimal
}

const trendWindowDays = 7

var trendChangeThreshold = decimal.NewFromInt(10)

// ComputeForecast projects period spend linearly from the elapsed daily
// burn rate. The daily series drives confidence and trend only; the
// projection itself uses the period's recalculated spend.
func ComputeForecast(p *Period, daily []DailySpend, now time.Time) Forecast {
	currency := p.SpentAmount.Currency()
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	elapsed := int(now.Sub(p.PeriodStart).Hours()/24) + 1
	if elapsed < 1 {
		elapsed = 1
	}
	remaining := int(p.PeriodEnd.Sub(now).Hours() / 24)
	if remaining < 0 {
		remaining = 0
	}

	avgDaily := p.SpentAmount.Amount().Div(decimal.NewFromInt(int64(elapsed)))
	projected := p.SpentAmount.Amount().Add(avgDaily.Mul(decimal.NewFromInt(int64(remaining))))

	projectedMoney, _ := valueobject.NewMoney(projected.Round(6), currency)
	avgDailyMoney, _ := valueobject.NewMoney(avgDaily.Round(6), currency)

	f := Forecast{
		ProjectedSpend: projectedMoney,
		AvgDailySpend:  avgDailyMoney,
		Confidence:     confidenceFor(len(daily)),
	}
	f.Trend, f.PercentageChange = trendFor(daily)

	total := p.TotalBudget().Amount()
	left := total.Sub(p.SpentAmount.Amount())
	switch {
	case left.LessThanOrEqual(decimal.Zero) && total.IsPositive():
		zero := 0
		f.DaysUntilExhaustion = &zero
		exhausted := now
		f.ForecastedEndDate = &exhausted
	case avgDaily.IsPositive() && projected.GreaterThan(total):
		days := int(left.Div(avgDaily).IntPart())
		f.DaysUntilExhaustion = &days
		endDate := now.AddDate(0, 0, days)
		f.ForecastedEndDate = &endDate
	}

	return f
}

func confidenceFor(dataPoints int) ForecastConfidence {
	switch {
	case dataPoints >= 14:
		return ConfidenceHigh
	case dataPoints < 7:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// trendFor compares the average of the last seven days against the
// average of the days before them. A swing beyond 10% in either
// direction counts as a trend.
func trendFor(daily []DailySpend) (TrendDirection, decimal.Decimal) {
	if len(daily) <= trendWindowDays {
		return TrendStable, decimal.Zero
	}

	split := len(daily) - trendWindowDays
	earlier := averageOf(daily[:split])
	recent := averageOf(daily[split:])

	if !earlier.IsPositive() {
		return TrendStable, decimal.Zero
	}

	change := recent.Sub(earlier).Div(earlier).Mul(decimal.NewFromInt(100))
	switch {
	case change.GreaterThan(trendChangeThreshold):
		return TrendUp, change
	case change.LessThan(trendChangeThreshold.Neg()):
		return TrendDown, change
	default:
		return TrendStable, change
	}
}

func averageOf(days []DailySpend) decimal.Decimal {
	if len(days) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, d := range days {
		sum = sum.Add(d.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(days))))
}
