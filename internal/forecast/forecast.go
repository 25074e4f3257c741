// Package forecast turns daily price history into a next-session closing price.
// It performs no I/O and keeps no state between calls.
package forecast

import (
	"fmt"

	"PredictiBoot/internal/calculator"
	"PredictiBoot/internal/model"
)

// Method selects the forecasting model.
type Method string

const (
	MethodARIMA    Method = "arima"
	MethodSequence Method = "lstm"
	MethodEnsemble Method = "ensemble"
)

// ParseMethod validates a method name. Empty selects the ensemble.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "":
		return MethodEnsemble, nil
	case MethodARIMA, MethodSequence, MethodEnsemble:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unknown forecast method %q", s)
	}
}

// MinBars returns the minimum cleaned history of a method.
func (m Method) MinBars() int {
	switch m {
	case MethodARIMA:
		return MinARIMABars
	case MethodSequence:
		return MinSequenceBars
	default:
		return MinEnsembleBars
	}
}

// Forecast sorts and validates bars, then runs the chosen method.
func Forecast(bars []model.DailyBar, method Method, opts Options) (*model.PredictionBundle, error) {
	bars, err := PrepareBars(bars)
	if err != nil {
		return nil, err
	}
	switch method {
	case MethodARIMA:
		return forecastARIMA(bars)
	case MethodSequence:
		return forecastSequence(bars, opts.Sequence)
	case MethodEnsemble, "":
		return NewEnsemble(opts).Predict(bars)
	default:
		return nil, fmt.Errorf("unknown forecast method %q", method)
	}
}

func forecastARIMA(bars []model.DailyBar) (*model.PredictionBundle, error) {
	a, err := FitARIMA(calculator.ExtractCloses(bars))
	if err != nil {
		return nil, err
	}
	price, err := a.Forecast()
	if err != nil {
		return nil, err
	}
	return bundle(MethodARIMA, price, bars), nil
}

func forecastSequence(bars []model.DailyBar, opts SequenceOptions) (*model.PredictionBundle, error) {
	if len(bars) < MinSequenceBars {
		return nil, InsufficientHistoryError{Model: "sequence model", Need: MinSequenceBars, Have: len(bars)}
	}
	seq := NewSequenceModel(opts)
	if err := seq.Fit(bars); err != nil {
		return nil, err
	}
	price, err := seq.Forecast()
	if err != nil {
		return nil, err
	}
	return bundle(MethodSequence, price, bars), nil
}
