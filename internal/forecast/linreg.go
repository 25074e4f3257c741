package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rankTolerance is the singular-value cutoff, relative to the largest one,
// below which a direction of the design matrix counts as collinear.
const rankTolerance = 1e-9

// LinearRegression is an ordinary least squares fit with intercept.
type LinearRegression struct {
	Intercept float64
	Coef      []float64
}

// FitLinearRegression fits y ~ intercept + x·coef. Columns are centred and
// solved through a rank-revealing SVD, so exactly or nearly collinear columns
// receive the minimum-norm solution (identical columns share weight equally).
// Columns without any variance make the fit fail.
func FitLinearRegression(x [][]float64, y []float64) (*LinearRegression, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("got %d rows but %d targets", len(x), len(y))
	}
	if len(y) < 2 {
		return nil, errors.New("need at least two observations")
	}
	n, p := len(y), len(x[0])

	means := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		means[j] = stat.Mean(col, nil)
	}
	yMean := stat.Mean(y, nil)

	design := mat.NewDense(n, p, nil)
	target := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			design.Set(i, j, x[i][j]-means[j])
		}
		target.SetVec(i, y[i]-yMean)
	}

	coef, rank, err := solveLeastSquares(design, target)
	if err != nil {
		return nil, err
	}
	if rank == 0 {
		return nil, errors.New("regressors carry no variance")
	}

	intercept := yMean
	for j, c := range coef {
		intercept -= c * means[j]
	}
	if !finite(intercept) {
		return nil, fmt.Errorf("non-finite intercept %v", intercept)
	}
	return &LinearRegression{Intercept: intercept, Coef: coef}, nil
}

// Predict evaluates the fitted line at x.
func (r *LinearRegression) Predict(x []float64) float64 {
	out := r.Intercept
	for j, c := range r.Coef {
		out += c * x[j]
	}
	return out
}

// solveLeastSquares returns the minimum-norm least squares solution and the
// numerical rank of a. A zero matrix yields zero coefficients and rank 0.
func solveLeastSquares(a *mat.Dense, b *mat.VecDense) ([]float64, int, error) {
	_, p := a.Dims()
	if mat.Norm(a, 2) == 0 {
		return make([]float64, p), 0, nil
	}
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, 0, errors.New("SVD factorization did not converge")
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return make([]float64, p), 0, nil
	}
	var beta mat.VecDense
	svd.SolveVecTo(&beta, b, rank)

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = beta.AtVec(j)
		if !finite(coef[j]) {
			return nil, rank, fmt.Errorf("non-finite coefficient %v", coef[j])
		}
	}
	return coef, rank, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
