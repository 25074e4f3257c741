package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	// MinARIMABars is the minimum history of the single-model predictor.
	MinARIMABars = 20
	arimaLags    = 5
)

// ARIMA is an ARIMA(5,1,0) model: an AR(5) without constant on first
// differences, fitted by conditional least squares.
type ARIMA struct {
	Coef  []float64
	diffs []float64
	last  float64
}

// FitARIMA fits the model to closes sorted ascending.
func FitARIMA(closes []float64) (*ARIMA, error) {
	if len(closes) < MinARIMABars {
		return nil, InsufficientHistoryError{Model: "arima", Need: MinARIMABars, Have: len(closes)}
	}
	diffs := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		diffs[i-1] = closes[i] - closes[i-1]
	}

	rows := len(diffs) - arimaLags
	design := mat.NewDense(rows, arimaLags, nil)
	target := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := r + arimaLags
		for k := 0; k < arimaLags; k++ {
			design.Set(r, k, diffs[t-1-k])
		}
		target.SetVec(r, diffs[t])
	}

	coef, _, err := solveLeastSquares(design, target)
	if err != nil {
		return nil, ComputationError{Stage: "arima fit", Err: err}
	}
	return &ARIMA{Coef: coef, diffs: diffs, last: closes[len(closes)-1]}, nil
}

// Forecast returns the one-step-ahead close.
func (a *ARIMA) Forecast() (float64, error) {
	n := len(a.diffs)
	next := 0.0
	for k, c := range a.Coef {
		next += c * a.diffs[n-1-k]
	}
	price := a.last + next
	if !finite(price) {
		return 0, ComputationError{Stage: "arima forecast", Err: fmt.Errorf("non-finite forecast %v", price)}
	}
	return price, nil
}
