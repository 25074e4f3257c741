package forecast

import (
	"math"
	"testing"

	"PredictiBoot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradientBoostedTrees_StepFunction(t *testing.T) {
	var x [][]float64
	var y []float64
	for i := 0; i < 100; i++ {
		v := float64(i)
		x = append(x, []float64{v, math.Mod(v, 7)})
		if v < 50 {
			y = append(y, 10)
		} else {
			y = append(y, 30)
		}
	}
	g := NewGradientBoostedTrees(BoostingOptions{Trees: 50, MaxDepth: 2, LearningRate: 0.3, Lambda: 1, MinChildWeight: 1, Subsample: 1, Seed: 1})
	require.NoError(t, g.Fit(x, y))

	assert.InDelta(t, 10, g.Predict([]float64{10, 3}), 0.5)
	assert.InDelta(t, 30, g.Predict([]float64{90, 6}), 0.5)
}

func TestGradientBoostedTrees_Deterministic(t *testing.T) {
	rows := CompleteRows(EngineerFeatures(trendBars(120, linearWithNoise)), true)
	x, y := featureMatrix(rows)
	opts := smallOptions().Boosting
	opts.Subsample = 0.8

	a := NewGradientBoostedTrees(opts)
	b := NewGradientBoostedTrees(opts)
	require.NoError(t, a.Fit(x, y))
	require.NoError(t, b.Fit(x, y))
	for _, row := range x {
		assert.Equal(t, a.Predict(row), b.Predict(row))
	}
}

func TestGradientBoostedTrees_Errors(t *testing.T) {
	g := NewGradientBoostedTrees(DefaultBoostingOptions())
	require.Error(t, g.Fit(nil, nil))
	require.Error(t, g.Fit([][]float64{{1}}, []float64{1, 2}))
}

func TestTreeModel(t *testing.T) {
	rows := CompleteRows(EngineerFeatures(trendBars(120, linearWithNoise)), true)
	m := NewTreeModel(smallOptions().Boosting)
	require.NoError(t, m.Fit(rows))

	preds, err := m.Predict(rows[len(rows)-5:])
	require.NoError(t, err)
	require.Len(t, preds, 5)
	for i, p := range preds {
		// in-sample fit of a smooth series
		assert.InDelta(t, rows[len(rows)-5+i].Target, p, 3)
	}

	_, err = m.Predict([]model.FeatureRow{{Close: math.NaN()}})
	require.Error(t, err)

	require.Error(t, NewTreeModel(smallOptions().Boosting).Fit(nil))
}
