package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aicost/backend/internal/domain/shared/valueobject"
)

func dailySeries(start time.Time, amounts ...float64) []DailySpend {
	series := make([]DailySpend, len(amounts))
	for i, a := range amounts {
		series[i] = DailySpend{
			Date:   start.AddDate(0, 0, i),
			Amount: decimal.NewFromFloat(a),
		}
	}
	return series
}

func flatSeries(start time.Time, days int, amount float64) []DailySpend {
	amounts := make([]float64, days)
	for i := range amounts {
		amounts[i] = amount
	}
	return dailySeries(start, amounts...)
}

func TestComputeForecast_LinearProjection(t *testing.T) {
	p := newTestPeriod(t, 3000)
	// day 10 of a 30-day period (Aug 1 start), $100/day burn
	now := p.PeriodStart.AddDate(0, 0, 9)
	p.RecordSpend(valueobject.NewMoneyUSDFromFloat(1000), now)

	f := ComputeForecast(p, flatSeries(p.PeriodStart, 10, 100), now)

	// elapsed 10 days, avg 100/day, 22 days until September 1
	assert.True(t, f.AvgDailySpend.Amount().Equal(decimal.NewFromInt(100)), "avg daily %s", f.AvgDailySpend)
	assert.True(t, f.ProjectedSpend.Amount().Equal(decimal.NewFromInt(3200)), "projected %s", f.ProjectedSpend)
}

func TestComputeForecast_Confidence(t *testing.T) {
	p := newTestPeriod(t, 1000)
	now := p.PeriodStart.AddDate(0, 0, 20)
	p.RecordSpend(valueobject.NewMoneyUSDFromFloat(100), now)

	tests := []struct {
		name string
		days int
		want ForecastConfidence
	}{
		{"no data", 0, ConfidenceLow},
		{"six days", 6, ConfidenceLow},
		{"seven days", 7, ConfidenceMedium},
		{"thirteen days", 13, ConfidenceMedium},
		{"fourteen days", 14, ConfidenceHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ComputeForecast(p, flatSeries(p.PeriodStart, tt.days, 5), now)
			assert.Equal(t, tt.want, f.Confidence)
		})
	}
}

func TestComputeForecast_Trend(t *testing.T) {
	p := newTestPeriod(t, 10000)
	now := p.PeriodStart.AddDate(0, 0, 13)
	p.RecordSpend(valueobject.NewMoneyUSDFromFloat(1000), now)

	t.Run("rising spend trends up", func(t *testing.T) {
		// earlier week at 10/day, recent week at 20/day
		series := dailySeries(p.PeriodStart, 10, 10, 10, 10, 10, 10, 10, 20, 20, 20, 20, 20, 20, 20)
		f := ComputeForecast(p, series, now)
		assert.Equal(t, TrendUp, f.Trend)
		assert.True(t, f.PercentageChange.Equal(decimal.NewFromInt(100)))
	})

	t.Run("falling spend trends down", func(t *testing.T) {
		series := dailySeries(p.PeriodStart, 20, 20, 20, 20, 20, 20, 20, 10, 10, 10, 10, 10, 10, 10)
		f := ComputeForecast(p, series, now)
		assert.Equal(t, TrendDown, f.Trend)
	})

	t.Run("small swing is stable", func(t *testing.T) {
		series := dailySeries(p.PeriodStart, 10, 10, 10, 10, 10, 10, 10, 10.5, 10.5, 10.5, 10.5, 10.5, 10.5, 10.5)
		f := ComputeForecast(p, series, now)
		assert.Equal(t, TrendStable, f.Trend)
	})

	t.Run("too little data is stable", func(t *testing.T) {
		f := ComputeForecast(p, flatSeries(p.PeriodStart, 7, 10), now)
		assert.Equal(t, TrendStable, f.Trend)
		assert.True(t, f.PercentageChange.IsZero())
	})
}

func TestComputeForecast_Exhaustion(t *testing.T) {
	t.Run("on-track budget has no exhaustion date", func(t *testing.T) {
		p := newTestPeriod(t, 5000)
		now := p.PeriodStart.AddDate(0, 0, 9)
		p.RecordSpend(valueobject.NewMoneyUSDFromFloat(1000), now)

		f := ComputeForecast(p, flatSeries(p.PeriodStart, 10, 100), now)
		assert.Nil(t, f.DaysUntilExhaustion)
		assert.Nil(t, f.ForecastedEndDate)
	})

	t.Run("overshooting budget projects exhaustion", func(t *testing.T) {
		p := newTestPeriod(t, 2000)
		now := p.PeriodStart.AddDate(0, 0, 9)
		p.RecordSpend(valueobject.NewMoneyUSDFromFloat(1000), now)

		f := ComputeForecast(p, flatSeries(p.PeriodStart, 10, 100), now)
		require.NotNil(t, f.DaysUntilExhaustion)
		// 1000 remaining at 100/day
		assert.Equal(t, 10, *f.DaysUntilExhaustion)
		require.NotNil(t, f.ForecastedEndDate)
		assert.Equal(t, now.AddDate(0, 0, 10), *f.ForecastedEndDate)
	})

	t.Run("already exhausted reports zero days", func(t *testing.T) {
		p := newTestPeriod(t, 1000)
		now := p.PeriodStart.AddDate(0, 0, 9)
		p.RecordSpend(valueobject.NewMoneyUSDFromFloat(1200), now)

		f := ComputeForecast(p, flatSeries(p.PeriodStart, 10, 120), now)
		require.NotNil(t, f.DaysUntilExhaustion)
		assert.Equal(t, 0, *f.DaysUntilExhaustion)
	})
}
