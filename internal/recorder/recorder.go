package recorder

import (
	"context"
	"time"
)

// PredictionRecord is one stored forecast.
type PredictionRecord struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	Method             string    `json:"method"`
	PredictedPrice     float64   `json:"predicted_price"`
	LastClose          float64   `json:"last_close"`
	LastDate           time.Time `json:"last_date"`
	TargetDate         time.Time `json:"target_date"`
	BarsUsed           int       `json:"bars_used"`
	SequencePrediction float64   `json:"sequence_prediction,omitempty"`
	TreePrediction     float64   `json:"tree_prediction,omitempty"`
	Message            string    `json:"message"`
	CreatedAt          time.Time `json:"created_at"`
}

// JobRun records one scheduled forecast attempt.
type JobRun struct {
	Job      string
	Code     string
	Status   string // "OK" or "FAILED"
	Error    string
	Duration time.Duration
}

// Recorder persists forecasts for later comparison with realised closes.
type Recorder interface {
	RecordPrediction(ctx context.Context, rec *PredictionRecord) error
	RecentPredictions(ctx context.Context, code string, limit int) ([]PredictionRecord, error)
	RecordJobRun(ctx context.Context, run *JobRun) error
	Close() error
}
