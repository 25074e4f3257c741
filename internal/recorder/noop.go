package recorder

import "context"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordPrediction(context.Context, *PredictionRecord) error { return nil }
func (n *NoopRecorder) RecordJobRun(context.Context, *JobRun) error             { return nil }
func (n *NoopRecorder) Close() error                                           { return nil }

func (n *NoopRecorder) RecentPredictions(context.Context, string, int) ([]PredictionRecord, error) {
	return []PredictionRecord{}, nil
}
