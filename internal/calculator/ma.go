package calculator

import (
	"errors"
	"math"

	"PredictiBoot/internal/model"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingSMA returns the trailing SMA at every index. Indexes with fewer than
// period observations are NaN.
func RollingSMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	out := make([]float64, len(prices))
	for i := range prices {
		sma, err := CalculateSMA(prices[:i+1], period)
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = sma
	}
	return out, nil
}

// PctChange returns the period-over-period change ratio. The first element is NaN.
func PctChange(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i := range prices {
		if i == 0 || prices[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return out
}

// ExtractCloses returns the closing prices of bars.
func ExtractCloses(bars []model.DailyBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
