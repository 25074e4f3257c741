// Package calendar decides which bars feed a forecast and which session it targets.
package calendar

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"PredictiBoot/internal/model"
)

// MarketClock is a market's timezone and daily close.
type MarketClock struct {
	Location    *time.Location
	CloseHour   int
	CloseMinute int
}

// NewMarketClock builds a clock from an IANA zone name and an "HH:MM" close.
func NewMarketClock(timezone, closeTime string) (MarketClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return MarketClock{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	t, err := time.Parse("15:04", closeTime)
	if err != nil {
		return MarketClock{}, fmt.Errorf("parse close time %q: %w", closeTime, err)
	}
	return MarketClock{Location: loc, CloseHour: t.Hour(), CloseMinute: t.Minute()}, nil
}

func (m MarketClock) location() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}

// Today returns midnight of now's date in the market timezone.
func (m MarketClock) Today(now time.Time) time.Time {
	y, mo, d := now.In(m.location()).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, m.location())
}

// IsClosed reports whether now is at or after the market close of its day.
func (m MarketClock) IsClosed(now time.Time) bool {
	local := now.In(m.location())
	closeAt := time.Date(local.Year(), local.Month(), local.Day(), m.CloseHour, m.CloseMinute, 0, 0, m.location())
	return !local.Before(closeAt)
}

// Window is the model input chosen for a forecast.
type Window struct {
	Bars          []model.DailyBar
	TargetDate    time.Time
	ExcludedToday bool
}

// Select trims bars (sorted ascending) for a forecast made at now. While the
// market is still open and the latest bar is today's, that bar is provisional
// and is excluded, so the forecast targets today. Otherwise every bar is used
// and the forecast targets the next session. Only weekends are skipped.
func (m MarketClock) Select(bars []model.DailyBar, now time.Time) (Window, error) {
	if len(bars) == 0 {
		return Window{}, errors.New("no bars to select from")
	}
	latest := bars[len(bars)-1]
	today := m.Today(now)

	if sameDate(latest.Date.In(m.location()), today) && !m.IsClosed(now) {
		used := bars[:len(bars)-1]
		if len(used) == 0 {
			return Window{}, errors.New("only today's provisional bar is available")
		}
		return Window{
			Bars:          used,
			TargetDate:    NextTradingDay(used[len(used)-1].Date),
			ExcludedToday: true,
		}, nil
	}
	return Window{Bars: bars, TargetDate: NextTradingDay(latest.Date)}, nil
}

// NextTradingDay returns the first weekday after d.
func NextTradingDay(d time.Time) time.Time {
	next := d.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
