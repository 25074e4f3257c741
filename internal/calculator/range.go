package calculator

import (
	"errors"
	"math"

	"PredictiBoot/internal/model"
)

// TradingDaysPerYear approximates 52 weeks of sessions.
const TradingDaysPerYear = 252

// CalculateRange scans the most recent days bars and returns the high and low.
func CalculateRange(bars []model.DailyBar, days int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	if days <= 0 {
		return 0, 0, errors.New("days must be positive")
	}
	n := len(bars)
	start := n - days
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// RangePosition returns where price sits within [low, high] (0.0~1.0).
func RangePosition(price, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (price - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
