package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsemble_RejectsShortHistory(t *testing.T) {
	_, err := NewEnsemble(smallOptions()).Predict(trendBars(MinEnsembleBars-1, linearWithNoise))
	var ih InsufficientHistoryError
	require.True(t, errors.As(err, &ih), err)
	assert.Equal(t, MinEnsembleBars, ih.Need)
	assert.Equal(t, MinEnsembleBars-1, ih.Have)
}

func TestEnsemble_HoldoutLargerThanHistory(t *testing.T) {
	opts := smallOptions()
	opts.Holdout = 200
	_, err := NewEnsemble(opts).Predict(trendBars(160, linearWithNoise))
	var ih InsufficientHistoryError
	require.True(t, errors.As(err, &ih), err)
}

func TestEnsemble_SplitIsDateAligned(t *testing.T) {
	e := NewEnsemble(smallOptions())
	h, err := e.derive(trendBars(150, linearWithNoise))
	require.NoError(t, err)

	s, err := e.split(h)
	require.NoError(t, err)
	require.Len(t, s.holdoutBars, DefaultHoldout)
	require.Len(t, s.holdoutRows, DefaultHoldout)
	for i := range s.holdoutRows {
		assert.True(t, s.holdoutRows[i].Date.Equal(s.holdoutBars[i].Date))
	}
	assert.True(t, s.baseBars[len(s.baseBars)-1].Date.Before(s.holdoutBars[0].Date))
	assert.True(t, s.baseRows[len(s.baseRows)-1].Date.Before(s.holdoutRows[0].Date))
	// no holdout row leaks into base training
	assert.Equal(t, len(h.labeled), len(s.baseRows)+len(s.holdoutRows))
}

func TestEnsemble_Predict(t *testing.T) {
	bars := trendBars(160, oscillating)
	got, err := NewEnsemble(smallOptions()).Predict(bars)
	require.NoError(t, err)

	last := bars[len(bars)-1]
	assert.Equal(t, string(MethodEnsemble), got.Method)
	assert.Equal(t, 160, got.BarsUsed)
	assert.Equal(t, last.Close, got.LastClose)
	assert.True(t, got.LastDate.Equal(last.Date))
	assert.True(t, got.TargetDate.After(last.Date))
	assert.NotEqual(t, time.Saturday, got.TargetDate.Weekday())
	assert.NotEqual(t, time.Sunday, got.TargetDate.Weekday())

	assert.False(t, math.IsNaN(got.PredictedPrice))
	assert.Greater(t, got.PredictedPrice, 0.0)
	assert.InDelta(t, last.Close, got.PredictedPrice, last.Close*0.5)

	require.NotNil(t, got.Components)
	assert.Equal(t, DefaultHoldout, got.Components.HoldoutSize)
	c := got.Components
	combined := c.Intercept + c.Weights[0]*c.SequencePrediction + c.Weights[1]*c.TreePrediction
	assert.InDelta(t, combined, c.MetaPrediction, 1e-6)
	lo, hi := math.Min(c.SequencePrediction, c.TreePrediction), math.Max(c.SequencePrediction, c.TreePrediction)
	assert.GreaterOrEqual(t, got.PredictedPrice, lo)
	assert.LessOrEqual(t, got.PredictedPrice, hi)
	if !c.Bounded {
		assert.InDelta(t, c.MetaPrediction, got.PredictedPrice, 1e-6)
	}
}

func TestEnsemble_LinearTrend(t *testing.T) {
	bars := trendBars(120, linearWithNoise)
	got, err := Forecast(bars, MethodEnsemble, smallOptions())
	require.NoError(t, err)

	next := 100 + 0.5*float64(len(bars))
	assert.InDelta(t, next, got.PredictedPrice, next*0.06)
	require.NotNil(t, got.Components)
	c := got.Components
	assert.GreaterOrEqual(t, got.PredictedPrice, math.Min(c.SequencePrediction, c.TreePrediction))
	assert.LessOrEqual(t, got.PredictedPrice, math.Max(c.SequencePrediction, c.TreePrediction))
}

func TestEnsemble_CombineBounds(t *testing.T) {
	bars := trendBars(3, linearWithNoise)
	h := &derivedHistory{bars: bars}
	final := &finalPredictions{sequence: 154.88, tree: 159.67}

	tests := []struct {
		name    string
		meta    *LinearRegression
		want    float64
		bounded bool
	}{
		{"above", &LinearRegression{Intercept: -809, Coef: []float64{4.32, 2.98}}, 159.67, true},
		{"below", &LinearRegression{Intercept: 0, Coef: []float64{0.5, 0.1}}, 154.88, true},
		{"inside", &LinearRegression{Intercept: 0, Coef: []float64{0.5, 0.5}}, (154.88 + 159.67) / 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEnsemble(smallOptions()).combine(h, tt.meta, final, DefaultHoldout)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.PredictedPrice, 1e-9)
			assert.Equal(t, tt.bounded, got.Components.Bounded)
			assert.InDelta(t, tt.meta.Predict([]float64{final.sequence, final.tree}), got.Components.MetaPrediction, 1e-9)
		})
	}
}

func TestEnsemble_Deterministic(t *testing.T) {
	bars := trendBars(130, oscillating)
	a, err := NewEnsemble(smallOptions()).Predict(bars)
	require.NoError(t, err)
	b, err := NewEnsemble(smallOptions()).Predict(bars)
	require.NoError(t, err)
	assert.Equal(t, a.PredictedPrice, b.PredictedPrice)
}

func TestEnsemble_SequenceWindowTooLongForBase(t *testing.T) {
	opts := smallOptions()
	opts.Sequence.Window = 60
	_, err := NewEnsemble(opts).Predict(trendBars(100, linearWithNoise))
	var ih InsufficientHistoryError
	require.True(t, errors.As(err, &ih), err)
}
