package forecast

import (
	"math"

	"PredictiBoot/internal/calculator"
	"PredictiBoot/internal/model"
)

const (
	shortSMAPeriod = 5
	longSMAPeriod  = 20
	rsiPeriod      = 14
)

// EngineerFeatures enriches chronologically sorted bars with SMA5, SMA20,
// RSI14, the close-to-close change ratio and the next day's close as target.
// Rows lacking history carry NaN; the last row has no target.
func EngineerFeatures(bars []model.DailyBar) []model.FeatureRow {
	closes := calculator.ExtractCloses(bars)
	// period is a positive constant, errors are impossible here
	sma5, _ := calculator.RollingSMA(closes, shortSMAPeriod)
	sma20, _ := calculator.RollingSMA(closes, longSMAPeriod)
	rsi, _ := calculator.RollingRSI(closes, rsiPeriod)
	change := calculator.PctChange(closes)

	rows := make([]model.FeatureRow, len(bars))
	for i, b := range bars {
		target := math.NaN()
		if i+1 < len(bars) {
			target = bars[i+1].Close
		}
		rows[i] = model.FeatureRow{
			Date:             b.Date,
			Close:            b.Close,
			Open:             b.Open,
			High:             b.High,
			Low:              b.Low,
			Volume:           b.Volume,
			SMA5:             sma5[i],
			SMA20:            sma20[i],
			RSI:              rsi[i],
			PriceChangeRatio: change[i],
			Target:           target,
		}
	}
	return rows
}

// CompleteRows drops rows with any missing derived feature. When labeled is
// true, rows without a target are dropped as well.
func CompleteRows(rows []model.FeatureRow, labeled bool) []model.FeatureRow {
	out := make([]model.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if !r.Complete() {
			continue
		}
		if labeled && !r.Labeled() {
			continue
		}
		out = append(out, r)
	}
	return out
}

func featureMatrix(rows []model.FeatureRow) (x [][]float64, y []float64) {
	x = make([][]float64, len(rows))
	y = make([]float64, len(rows))
	for i, r := range rows {
		x[i] = r.Features()
		y[i] = r.Target
	}
	return x, y
}
