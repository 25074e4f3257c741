package forecast

import (
	"errors"
	"fmt"
	"math"
)

// MinMaxScaler maps every column onto [0,1] using the range seen in Fit.
type MinMaxScaler struct {
	min []float64
	max []float64
}

// Fit learns per-column minimum and maximum.
func (s *MinMaxScaler) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return errors.New("scaler: no rows to fit")
	}
	cols := len(rows[0])
	s.min = make([]float64, cols)
	s.max = make([]float64, cols)
	for c := 0; c < cols; c++ {
		s.min[c] = math.Inf(1)
		s.max[c] = math.Inf(-1)
	}
	for _, row := range rows {
		if len(row) != cols {
			return fmt.Errorf("scaler: ragged row of width %d, want %d", len(row), cols)
		}
		for c, v := range row {
			s.min[c] = math.Min(s.min[c], v)
			s.max[c] = math.Max(s.max[c], v)
		}
	}
	return nil
}

// Transform scales rows. A constant column maps to 0.
func (s *MinMaxScaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled := make([]float64, len(row))
		for c, v := range row {
			span := s.max[c] - s.min[c]
			if span == 0 {
				continue
			}
			scaled[c] = (v - s.min[c]) / span
		}
		out[i] = scaled
	}
	return out
}

// InverseTransform maps scaled rows back to the original units.
func (s *MinMaxScaler) InverseTransform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		orig := make([]float64, len(row))
		for c, v := range row {
			orig[c] = v*(s.max[c]-s.min[c]) + s.min[c]
		}
		out[i] = orig
	}
	return out
}

// FitTransform is Fit followed by Transform.
func (s *MinMaxScaler) FitTransform(rows [][]float64) ([][]float64, error) {
	if err := s.Fit(rows); err != nil {
		return nil, err
	}
	return s.Transform(rows), nil
}
