package forecast

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// BoostingOptions configures gradient-boosted regression trees.
type BoostingOptions struct {
	Trees          int     `yaml:"trees" default:"500" validate:"gte=1"`
	MaxDepth       int     `yaml:"max_depth" default:"6" validate:"gte=1"`
	LearningRate   float64 `yaml:"learning_rate" default:"0.3" validate:"gt=0"`
	Lambda         float64 `yaml:"lambda" default:"1" validate:"gte=0"`
	MinChildWeight float64 `yaml:"min_child_weight" default:"1" validate:"gte=0"`
	Subsample      float64 `yaml:"subsample" default:"1" validate:"gt=0,lte=1"`
	Seed           int64   `yaml:"seed" default:"42"`
}

// DefaultBoostingOptions returns 500 depth-6 trees with L2 leaf regularisation.
func DefaultBoostingOptions() BoostingOptions {
	return BoostingOptions{
		Trees:          500,
		MaxDepth:       6,
		LearningRate:   0.3,
		Lambda:         1,
		MinChildWeight: 1,
		Subsample:      1,
		Seed:           42,
	}
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] < n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// GradientBoostedTrees fits regression trees to the squared-error gradient
// with second-order (hessian weighted) split gain.
type GradientBoostedTrees struct {
	opts  BoostingOptions
	base  float64
	trees []*treeNode
}

// NewGradientBoostedTrees creates an untrained ensemble.
func NewGradientBoostedTrees(opts BoostingOptions) *GradientBoostedTrees {
	return &GradientBoostedTrees{opts: opts}
}

// Fit trains on rows x against y.
func (g *GradientBoostedTrees) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return errors.New("no training rows")
	}
	if len(x) != len(y) {
		return fmt.Errorf("got %d rows but %d targets", len(x), len(y))
	}

	g.base = 0
	for _, v := range y {
		g.base += v
	}
	g.base /= float64(len(y))
	g.trees = g.trees[:0]

	rng := rand.New(rand.NewSource(g.opts.Seed))
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = g.base
	}
	grad := make([]float64, len(y))
	for t := 0; t < g.opts.Trees; t++ {
		for i := range grad {
			grad[i] = pred[i] - y[i]
		}
		idx := g.sampleRows(len(y), rng)
		if len(idx) == 0 {
			continue
		}
		root := g.grow(x, grad, idx, 0)
		g.trees = append(g.trees, root)
		for i := range pred {
			pred[i] += root.predict(x[i])
		}
	}
	return nil
}

// Predict returns the model output for one row.
func (g *GradientBoostedTrees) Predict(x []float64) float64 {
	out := g.base
	for _, t := range g.trees {
		out += t.predict(x)
	}
	return out
}

func (g *GradientBoostedTrees) sampleRows(n int, rng *rand.Rand) []int {
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if g.opts.Subsample >= 1 || rng.Float64() < g.opts.Subsample {
			idx = append(idx, i)
		}
	}
	return idx
}

// leafValue is the shrunken Newton step -G/(H+lambda); the squared-error
// hessian is 1 per row.
func (g *GradientBoostedTrees) leafValue(sumGrad float64, count int) float64 {
	return -sumGrad / (float64(count) + g.opts.Lambda) * g.opts.LearningRate
}

func (g *GradientBoostedTrees) grow(x [][]float64, grad []float64, idx []int, depth int) *treeNode {
	var sum float64
	for _, i := range idx {
		sum += grad[i]
	}
	leaf := &treeNode{leaf: true, value: g.leafValue(sum, len(idx))}
	if depth >= g.opts.MaxDepth || len(idx) < 2 {
		return leaf
	}

	feature, threshold, ok := g.bestSplit(x, grad, idx, sum)
	if !ok {
		return leaf
	}
	var left, right []int
	for _, i := range idx {
		if x[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      g.grow(x, grad, left, depth+1),
		right:     g.grow(x, grad, right, depth+1),
	}
}

func (g *GradientBoostedTrees) bestSplit(x [][]float64, grad []float64, idx []int, sum float64) (feature int, threshold float64, ok bool) {
	lambda := g.opts.Lambda
	total := float64(len(idx))
	parent := sum * sum / (total + lambda)
	bestGain := 1e-12
	sorted := make([]int, len(idx))

	for f := 0; f < len(x[idx[0]]); f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool { return x[sorted[a]][f] < x[sorted[b]][f] })

		var gl, hl float64
		for k := 0; k < len(sorted)-1; k++ {
			gl += grad[sorted[k]]
			hl++
			lo, hi := x[sorted[k]][f], x[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			hr := total - hl
			if hl < g.opts.MinChildWeight || hr < g.opts.MinChildWeight {
				continue
			}
			gr := sum - gl
			gain := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent
			if gain > bestGain {
				bestGain = gain
				feature = f
				threshold = lo + (hi-lo)/2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
