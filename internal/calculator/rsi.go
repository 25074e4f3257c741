package calculator

import (
	"errors"
	"math"
)

// RollingRSI computes RSI = 100 - 100/(1+RS) at every index, where RS is the
// mean gain over the trailing period deltas divided by the mean loss.
// A window without losses yields 100. Indexes without period deltas are NaN.
func RollingRSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	out := make([]float64, len(closes))
	for i := range closes {
		if i < period {
			out[i] = math.NaN()
			continue
		}
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			change := closes[j] - closes[j-1]
			if change > 0 {
				gain += change
			} else {
				loss -= change // make positive
			}
		}
		out[i] = rsiFromAverages(gain/float64(period), loss/float64(period))
	}
	return out, nil
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	rsi := 100.0 - 100.0/(1.0+rs)
	// guard against rounding just outside the band
	return math.Min(100, math.Max(0, rsi))
}
