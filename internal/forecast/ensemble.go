package forecast

import (
	"fmt"

	"PredictiBoot/internal/calendar"
	"PredictiBoot/internal/model"
)

const (
	// MinEnsembleBars is the minimum cleaned history of the stacking ensemble.
	// The holdout split needs more than this whenever Holdout plus the
	// feature warm-up and the sequence window exceed it: about 122 bars at
	// DefaultOptions. split reports the real requirement.
	MinEnsembleBars = 90
	// DefaultHoldout is the number of labeled rows reserved for meta-training.
	DefaultHoldout = 60
)

// Options configures every forecasting method.
type Options struct {
	Holdout  int             `yaml:"holdout" default:"60" validate:"gte=2"`
	Sequence SequenceOptions `yaml:"sequence"`
	Boosting BoostingOptions `yaml:"boosting"`
}

// DefaultOptions returns production settings.
func DefaultOptions() Options {
	return Options{
		Holdout:  DefaultHoldout,
		Sequence: DefaultSequenceOptions(),
		Boosting: DefaultBoostingOptions(),
	}
}

// Ensemble stacks the sequence and tree models through a linear meta-model.
// Each Predict call runs validate, derive, split, fitBase, fitMeta, fitFinal
// and combine in order, with fresh models at every stage. The combined price
// is bounded by the two final base forecasts.
type Ensemble struct {
	opts Options
}

// NewEnsemble creates a stacking ensemble.
func NewEnsemble(opts Options) *Ensemble {
	return &Ensemble{opts: opts}
}

// derivedHistory is the feature-engineered view of the cleaned bars.
type derivedHistory struct {
	bars    []model.DailyBar
	labeled []model.FeatureRow
	latest  model.FeatureRow
}

// segmentSplit separates base-training and holdout data on one date boundary,
// for raw bars and feature rows alike.
type segmentSplit struct {
	baseBars    []model.DailyBar
	holdoutBars []model.DailyBar
	baseRows    []model.FeatureRow
	holdoutRows []model.FeatureRow
}

// holdoutPredictions are out-of-sample base-model outputs with their truth.
type holdoutPredictions struct {
	sequence []float64
	tree     []float64
	target   []float64
}

// finalPredictions are the base-model forecasts past the last bar.
type finalPredictions struct {
	sequence float64
	tree     float64
}

// Predict forecasts the close of the session after the last bar. bars must be
// cleaned and sorted ascending.
func (e *Ensemble) Predict(bars []model.DailyBar) (*model.PredictionBundle, error) {
	if err := e.validate(bars); err != nil {
		return nil, err
	}
	history, err := e.derive(bars)
	if err != nil {
		return nil, err
	}
	split, err := e.split(history)
	if err != nil {
		return nil, err
	}
	holdout, err := e.fitBase(split)
	if err != nil {
		return nil, err
	}
	meta, err := e.fitMeta(holdout)
	if err != nil {
		return nil, err
	}
	final, err := e.fitFinal(history)
	if err != nil {
		return nil, err
	}
	return e.combine(history, meta, final, len(holdout.target))
}

func (e *Ensemble) validate(bars []model.DailyBar) error {
	if len(bars) < MinEnsembleBars {
		return InsufficientHistoryError{Model: "ensemble", Need: MinEnsembleBars, Have: len(bars)}
	}
	return nil
}

func (e *Ensemble) derive(bars []model.DailyBar) (*derivedHistory, error) {
	rows := EngineerFeatures(bars)
	latest := rows[len(rows)-1]
	if !latest.Complete() {
		return nil, DataQualityError{Reason: "latest bar lacks derived features"}
	}
	return &derivedHistory{
		bars:    bars,
		labeled: CompleteRows(rows, true),
		latest:  latest,
	}, nil
}

func (e *Ensemble) split(h *derivedHistory) (*segmentSplit, error) {
	holdout := e.opts.Holdout
	if len(h.labeled) <= holdout {
		return nil, InsufficientHistoryError{
			Model: "ensemble holdout",
			Need:  len(h.bars) - len(h.labeled) + holdout + 1,
			Have:  len(h.bars),
		}
	}
	cut := len(h.labeled) - holdout
	boundary := h.labeled[cut].Date

	start := -1
	for i, b := range h.bars {
		if b.Date.Equal(boundary) {
			start = i
			break
		}
	}
	if start < 0 || start+holdout > len(h.bars) {
		return nil, ComputationError{Stage: "segment split", Err: fmt.Errorf("no bar dated %s", boundary.Format("2006-01-02"))}
	}

	s := &segmentSplit{
		baseBars:    h.bars[:start],
		holdoutBars: h.bars[start : start+holdout],
		baseRows:    h.labeled[:cut],
		holdoutRows: h.labeled[cut:],
	}
	for i, r := range s.holdoutRows {
		if !r.Date.Equal(s.holdoutBars[i].Date) {
			return nil, ComputationError{Stage: "segment split", Err: fmt.Errorf("holdout row %s is not aligned with bar %s",
				r.Date.Format("2006-01-02"), s.holdoutBars[i].Date.Format("2006-01-02"))}
		}
	}
	return s, nil
}

func (e *Ensemble) fitBase(s *segmentSplit) (*holdoutPredictions, error) {
	seq := NewSequenceModel(e.opts.Sequence)
	if err := seq.Fit(s.baseBars); err != nil {
		return nil, err
	}
	seqPreds, err := seq.Predict(s.holdoutBars)
	if err != nil {
		return nil, err
	}

	tree := NewTreeModel(e.opts.Boosting)
	if err := tree.Fit(s.baseRows); err != nil {
		return nil, err
	}
	treePreds, err := tree.Predict(s.holdoutRows)
	if err != nil {
		return nil, err
	}

	target := make([]float64, len(s.holdoutRows))
	for i, r := range s.holdoutRows {
		target[i] = r.Target
	}
	return &holdoutPredictions{sequence: seqPreds, tree: treePreds, target: target}, nil
}

func (e *Ensemble) fitMeta(h *holdoutPredictions) (*LinearRegression, error) {
	x := make([][]float64, len(h.target))
	for i := range x {
		x[i] = []float64{h.sequence[i], h.tree[i]}
	}
	meta, err := FitLinearRegression(x, h.target)
	if err != nil {
		return nil, ComputationError{Stage: "meta-model regression", Err: err}
	}
	return meta, nil
}

func (e *Ensemble) fitFinal(h *derivedHistory) (*finalPredictions, error) {
	seq := NewSequenceModel(e.opts.Sequence)
	if err := seq.Fit(h.bars); err != nil {
		return nil, err
	}
	seqNext, err := seq.Forecast()
	if err != nil {
		return nil, err
	}

	tree := NewTreeModel(e.opts.Boosting)
	if err := tree.Fit(h.labeled); err != nil {
		return nil, err
	}
	treeNext, err := tree.Predict([]model.FeatureRow{h.latest})
	if err != nil {
		return nil, err
	}
	return &finalPredictions{sequence: seqNext, tree: treeNext[0]}, nil
}

func (e *Ensemble) combine(h *derivedHistory, meta *LinearRegression, f *finalPredictions, holdout int) (*model.PredictionBundle, error) {
	raw := meta.Predict([]float64{f.sequence, f.tree})
	if !finite(raw) {
		return nil, ComputationError{Stage: "meta-model forecast", Err: fmt.Errorf("implausible price %v", raw)}
	}
	price, bounded := boundToBase(raw, f)
	if price <= 0 {
		return nil, ComputationError{Stage: "meta-model forecast", Err: fmt.Errorf("implausible price %v", price)}
	}
	last := h.bars[len(h.bars)-1]
	return &model.PredictionBundle{
		Method:         string(MethodEnsemble),
		PredictedPrice: price,
		TargetDate:     calendar.NextTradingDay(last.Date),
		LastDate:       last.Date,
		LastClose:      last.Close,
		BarsUsed:       len(h.bars),
		Components: &model.EnsembleComponents{
			SequencePrediction: f.sequence,
			TreePrediction:     f.tree,
			Intercept:          meta.Intercept,
			Weights:            [2]float64{meta.Coef[0], meta.Coef[1]},
			HoldoutSize:        holdout,
			MetaPrediction:     raw,
			Bounded:            bounded,
		},
	}, nil
}

// bundle builds a single-model result.
func bundle(method Method, price float64, bars []model.DailyBar) *model.PredictionBundle {
	last := bars[len(bars)-1]
	return &model.PredictionBundle{
		Method:         string(method),
		PredictedPrice: price,
		TargetDate:     calendar.NextTradingDay(last.Date),
		LastDate:       last.Date,
		LastClose:      last.Close,
		BarsUsed:       len(bars),
	}
}

// boundToBase clamps the meta-model output to the interval spanned by the two
// final base forecasts. On trending series the holdout weights overshoot once
// applied to the retrained models.
func boundToBase(raw float64, f *finalPredictions) (float64, bool) {
	lo, hi := f.sequence, f.tree
	if lo > hi {
		lo, hi = hi, lo
	}
	switch {
	case raw < lo:
		return lo, true
	case raw > hi:
		return hi, true
	}
	return raw, false
}
