package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodBoundsAt(t *testing.T) {
	// Wednesday, August 12 2026
	at := time.Date(2026, 8, 12, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		periodType PeriodType
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{
			"weekly aligns to Monday",
			PeriodWeekly,
			time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			"monthly aligns to first of month",
			PeriodMonthly,
			time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"quarterly aligns to quarter start",
			PeriodQuarterly,
			time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"annual aligns to January 1",
			PeriodAnnual,
			time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := PeriodBoundsAt(tt.periodType, at)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}

	t.Run("custom cadence has no derivable bounds", func(t *testing.T) {
		_, _, err := PeriodBoundsAt(PeriodCustom, at)
		assert.Error(t, err)
	})

	t.Run("monday maps to its own week", func(t *testing.T) {
		monday := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
		start, _, err := PeriodBoundsAt(PeriodWeekly, monday)
		require.NoError(t, err)
		assert.Equal(t, monday, start)
	})
}

func TestNextPeriodBounds_Contiguous(t *testing.T) {
	for _, pt := range []PeriodType{PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodAnnual} {
		t.Run(string(pt), func(t *testing.T) {
			_, end, err := PeriodBoundsAt(pt, time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC))
			require.NoError(t, err)

			nextStart, nextEnd, err := NextPeriodBounds(pt, end)
			require.NoError(t, err)
			assert.Equal(t, end, nextStart, "periods must be contiguous")
			assert.True(t, nextEnd.After(nextStart))
		})
	}
}
