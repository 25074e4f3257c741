package forecast

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"PredictiBoot/internal/model"
)

// MinSequenceBars is the sequence model's window length and minimum history.
const MinSequenceBars = 60

// SequenceOptions configures the recurrent model.
type SequenceOptions struct {
	Window       int     `yaml:"window" default:"60" validate:"gte=2"`
	Units        int     `yaml:"units" default:"50" validate:"gte=1"`
	DenseUnits   int     `yaml:"dense_units" default:"25" validate:"gte=1"`
	Dropout      float64 `yaml:"dropout" default:"0.2" validate:"gte=0,lt=1"`
	Epochs       int     `yaml:"epochs" default:"25" validate:"gte=1"`
	BatchSize    int     `yaml:"batch_size" default:"32" validate:"gte=1"`
	LearningRate float64 `yaml:"learning_rate" default:"0.001" validate:"gt=0"`
	Seed         int64   `yaml:"seed" default:"42"`
}

// DefaultSequenceOptions returns the production network shape.
func DefaultSequenceOptions() SequenceOptions {
	return SequenceOptions{
		Window:       MinSequenceBars,
		Units:        50,
		DenseUnits:   25,
		Dropout:      0.2,
		Epochs:       25,
		BatchSize:    32,
		LearningRate: 0.001,
		Seed:         42,
	}
}

// SequenceModel forecasts the next close from trailing windows of scaled
// close, open, high, low and volume.
type SequenceModel struct {
	opts     SequenceOptions
	features MinMaxScaler
	closes   MinMaxScaler
	history  [][]float64
	net      *lstmNetwork
}

// NewSequenceModel creates an untrained model.
func NewSequenceModel(opts SequenceOptions) *SequenceModel {
	return &SequenceModel{opts: opts}
}

func sequenceRow(b model.DailyBar) []float64 {
	return []float64{b.Close, b.Open, b.High, b.Low, b.Volume}
}

// Fit trains on bars sorted ascending. Every sample is one window of
// opts.Window rows labeled with the scaled close of the row that follows it,
// so at least Window+1 bars are needed.
func (m *SequenceModel) Fit(bars []model.DailyBar) error {
	w := m.opts.Window
	if len(bars) < w {
		return InsufficientHistoryError{Model: "sequence model", Need: w, Have: len(bars)}
	}
	if len(bars) == w {
		return InsufficientHistoryError{Model: "sequence model training", Need: w + 1, Have: len(bars)}
	}

	m.history = make([][]float64, len(bars))
	closes := make([][]float64, len(bars))
	for i, b := range bars {
		m.history[i] = sequenceRow(b)
		closes[i] = []float64{b.Close}
	}
	scaled, err := m.features.FitTransform(m.history)
	if err != nil {
		return ComputationError{Stage: "sequence scaling", Err: err}
	}
	labels, err := m.closes.FitTransform(closes)
	if err != nil {
		return ComputationError{Stage: "sequence scaling", Err: err}
	}

	xs := make([][][]float64, 0, len(bars)-w)
	ys := make([]float64, 0, len(bars)-w)
	for i := w; i < len(bars); i++ {
		xs = append(xs, scaled[i-w:i])
		ys = append(ys, labels[i][0])
	}

	rng := rand.New(rand.NewSource(m.opts.Seed))
	m.net = newLSTMNetwork(len(m.history[0]), m.opts.Units, m.opts.DenseUnits, m.opts.Dropout, rng)
	loss := m.net.train(xs, ys, m.opts.Epochs, m.opts.BatchSize, newAdam(m.opts.LearningRate), rng)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		m.net = nil
		return ComputationError{Stage: "sequence model training", Err: fmt.Errorf("loss diverged to %v", loss)}
	}
	return nil
}

// Predict returns, for each target bar, the forecast of the close that
// follows it, using the trailing window ending at that bar. Windows reaching
// before the first target draw on the training tail.
func (m *SequenceModel) Predict(targets []model.DailyBar) ([]float64, error) {
	if m.net == nil {
		return nil, errors.New("sequence model is not fitted")
	}
	combined := make([][]float64, 0, len(m.history)+len(targets))
	combined = append(combined, m.history...)
	for _, b := range targets {
		combined = append(combined, sequenceRow(b))
	}
	scaled := m.features.Transform(combined)

	out := make([]float64, len(targets))
	for k := range targets {
		end := len(m.history) + k + 1
		v, err := m.predictWindow(scaled, end)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Forecast predicts the close following the last training bar.
func (m *SequenceModel) Forecast() (float64, error) {
	if m.net == nil {
		return 0, errors.New("sequence model is not fitted")
	}
	return m.predictWindow(m.features.Transform(m.history), len(m.history))
}

// predictWindow runs the window scaled[end-Window:end] and returns the price.
func (m *SequenceModel) predictWindow(scaled [][]float64, end int) (float64, error) {
	start := end - m.opts.Window
	if start < 0 {
		return 0, InsufficientHistoryError{Model: "sequence model", Need: m.opts.Window, Have: end}
	}
	out := m.net.predict(scaled[start:end])
	price := m.closes.InverseTransform([][]float64{{out}})[0][0]
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, ComputationError{Stage: "sequence model inference", Err: fmt.Errorf("non-finite output %v", price)}
	}
	return price, nil
}
