package forecast

import (
	"errors"

	"PredictiBoot/internal/model"
)

// TreeModel predicts the next close directly in price units from one
// engineered feature row.
type TreeModel struct {
	gbdt *GradientBoostedTrees
}

// NewTreeModel creates an untrained model.
func NewTreeModel(opts BoostingOptions) *TreeModel {
	return &TreeModel{gbdt: NewGradientBoostedTrees(opts)}
}

// Fit trains on complete, labeled rows.
func (m *TreeModel) Fit(rows []model.FeatureRow) error {
	rows = CompleteRows(rows, true)
	if len(rows) == 0 {
		return InsufficientHistoryError{Model: "tree model", Need: 1, Have: 0}
	}
	x, y := featureMatrix(rows)
	if err := m.gbdt.Fit(x, y); err != nil {
		return ComputationError{Stage: "tree model training", Err: err}
	}
	return nil
}

// Predict returns one forecast per row. Rows must have complete features.
func (m *TreeModel) Predict(rows []model.FeatureRow) ([]float64, error) {
	if len(m.gbdt.trees) == 0 {
		return nil, errors.New("tree model is not fitted")
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		if !r.Complete() {
			return nil, DataQualityError{Reason: "feature row " + r.Date.Format("2006-01-02") + " has missing values"}
		}
		out[i] = m.gbdt.Predict(r.Features())
	}
	return out, nil
}
