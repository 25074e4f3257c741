package model

import "time"

// EnsembleComponents exposes what fed the meta-model, for diagnostics.
// MetaPrediction is the unbounded meta-model output; the bundle's price
// differs from it when Bounded is set.
type EnsembleComponents struct {
	SequencePrediction float64    `json:"sequence_prediction"`
	TreePrediction     float64    `json:"tree_prediction"`
	Intercept          float64    `json:"meta_intercept"`
	Weights            [2]float64 `json:"meta_weights"`
	MetaPrediction     float64    `json:"meta_prediction"`
	Bounded            bool       `json:"meta_bounded"`
	HoldoutSize        int        `json:"holdout_size"`
}

// PredictionBundle is the output of one forecast call.
type PredictionBundle struct {
	Method         string              `json:"method"`
	PredictedPrice float64             `json:"predicted_price"`
	TargetDate     time.Time           `json:"target_date"`
	LastDate       time.Time           `json:"last_date"`
	LastClose      float64             `json:"last_close"`
	BarsUsed       int                 `json:"bars_used"`
	Components     *EnsembleComponents `json:"components,omitempty"`
}
