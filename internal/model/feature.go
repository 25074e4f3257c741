package model

import (
	"math"
	"time"
)

// FeatureColumns lists the engineered inputs of the tree model, in vector order.
var FeatureColumns = []string{
	"close", "open", "high", "low", "volume",
	"sma5", "sma20", "rsi", "price_change_ratio",
}

// FeatureRow is a DailyBar enriched with technical indicators.
// Missing values are NaN.
type FeatureRow struct {
	Date             time.Time
	Close            float64
	Open             float64
	High             float64
	Low              float64
	Volume           float64
	SMA5             float64
	SMA20            float64
	RSI              float64
	PriceChangeRatio float64
	Target           float64 // next day's close
}

// Complete reports whether every derived feature is present.
func (r FeatureRow) Complete() bool {
	for _, v := range r.Features() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Labeled reports whether the row carries a target.
func (r FeatureRow) Labeled() bool {
	return !math.IsNaN(r.Target)
}

// Features returns the row as a vector ordered like FeatureColumns.
func (r FeatureRow) Features() []float64 {
	return []float64{
		r.Close, r.Open, r.High, r.Low, r.Volume,
		r.SMA5, r.SMA20, r.RSI, r.PriceChangeRatio,
	}
}
