package calendar

import (
	"testing"
	"time"

	"PredictiBoot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seoulClock(t *testing.T) MarketClock {
	t.Helper()
	clock, err := NewMarketClock("Asia/Seoul", "15:30")
	require.NoError(t, err)
	return clock
}

func barsEndingOn(last time.Time, n int) []model.DailyBar {
	bars := make([]model.DailyBar, 0, n)
	d := last
	for len(bars) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			bars = append([]model.DailyBar{{Date: d, Close: 100}}, bars...)
		}
		d = d.AddDate(0, 0, -1)
	}
	return bars
}

func TestSelect(t *testing.T) {
	clock := seoulClock(t)
	loc := clock.Location
	friday := time.Date(2024, 6, 14, 0, 0, 0, 0, loc)
	bars := barsEndingOn(friday, 5)

	tests := []struct {
		name        string
		now         time.Time
		wantLen     int
		wantTarget  time.Time
		wantExclude bool
	}{
		{
			name:        "pre-close excludes today and targets today",
			now:         time.Date(2024, 6, 14, 10, 0, 0, 0, loc),
			wantLen:     4,
			wantTarget:  friday,
			wantExclude: true,
		},
		{
			name:       "post-close includes today and skips the weekend",
			now:        time.Date(2024, 6, 14, 16, 0, 0, 0, loc),
			wantLen:    5,
			wantTarget: time.Date(2024, 6, 17, 0, 0, 0, 0, loc),
		},
		{
			name:       "exactly at close counts as closed",
			now:        time.Date(2024, 6, 14, 15, 30, 0, 0, loc),
			wantLen:    5,
			wantTarget: time.Date(2024, 6, 17, 0, 0, 0, 0, loc),
		},
		{
			name:       "weekend run uses everything",
			now:        time.Date(2024, 6, 15, 11, 0, 0, 0, loc),
			wantLen:    5,
			wantTarget: time.Date(2024, 6, 17, 0, 0, 0, 0, loc),
		},
		{
			name:        "now given in another zone is converted",
			now:         time.Date(2024, 6, 14, 1, 0, 0, 0, time.UTC), // 10:00 KST
			wantLen:     4,
			wantTarget:  friday,
			wantExclude: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := clock.Select(bars, tt.now)
			require.NoError(t, err)
			assert.Len(t, w.Bars, tt.wantLen)
			assert.True(t, tt.wantTarget.Equal(w.TargetDate), "target %s, want %s", w.TargetDate, tt.wantTarget)
			assert.Equal(t, tt.wantExclude, w.ExcludedToday)
		})
	}
}

func TestSelect_StaleDataDuringSession(t *testing.T) {
	clock := seoulClock(t)
	loc := clock.Location
	thursday := time.Date(2024, 6, 13, 0, 0, 0, 0, loc)
	bars := barsEndingOn(thursday, 3)

	w, err := clock.Select(bars, time.Date(2024, 6, 14, 10, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Len(t, w.Bars, 3)
	assert.False(t, w.ExcludedToday)
	assert.True(t, time.Date(2024, 6, 14, 0, 0, 0, 0, loc).Equal(w.TargetDate))
}

func TestSelect_Errors(t *testing.T) {
	clock := seoulClock(t)
	_, err := clock.Select(nil, time.Now())
	require.Error(t, err)

	only := []model.DailyBar{{Date: time.Date(2024, 6, 14, 0, 0, 0, 0, clock.Location), Close: 1}}
	_, err = clock.Select(only, time.Date(2024, 6, 14, 9, 0, 0, 0, clock.Location))
	require.Error(t, err)
}

func TestNextTradingDay(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.True(t, tt.want.Equal(NextTradingDay(tt.in)), "after %s", tt.in)
	}
}

func TestNewMarketClock_Invalid(t *testing.T) {
	_, err := NewMarketClock("Nowhere/City", "15:30")
	require.Error(t, err)
	_, err = NewMarketClock("Asia/Seoul", "3pm")
	require.Error(t, err)
}
