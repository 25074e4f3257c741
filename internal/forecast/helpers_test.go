package forecast

import (
	"math"
	"time"

	"PredictiBoot/internal/model"
)

// trendBars returns n weekday bars following close(i), starting 2023-01-02.
func trendBars(n int, close func(i int) float64) []model.DailyBar {
	bars := make([]model.DailyBar, 0, n)
	d := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; len(bars) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		c := close(i)
		bars = append(bars, model.DailyBar{
			Date:   d,
			Open:   c * 0.995,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 100000 + float64((i*7919)%5000),
		})
		i++
	}
	return bars
}

func linearWithNoise(i int) float64 {
	return 100 + 0.5*float64(i) + 0.8*math.Sin(float64(i)*1.7)
}

func smallOptions() Options {
	return Options{
		Holdout: DefaultHoldout,
		Sequence: SequenceOptions{
			Window:       10,
			Units:        6,
			DenseUnits:   4,
			Dropout:      0.2,
			Epochs:       15,
			BatchSize:    16,
			LearningRate: 0.01,
			Seed:         7,
		},
		Boosting: BoostingOptions{
			Trees:          60,
			MaxDepth:       3,
			LearningRate:   0.3,
			Lambda:         1,
			MinChildWeight: 1,
			Subsample:      1,
			Seed:           7,
		},
	}
}

// oscillating moves inside one price band with no drift.
func oscillating(i int) float64 {
	return 100 + 10*math.Sin(float64(i)*0.3) + 0.8*math.Sin(float64(i)*1.7)
}
