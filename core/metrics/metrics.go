package metrics

import "time"

// EpochStat captures the training losses of one completed epoch.
type EpochStat struct {
	Epoch    int
	TrainMAE float64
	TrainMSE float64
	Duration time.Duration
}

// Sink records training progress and evaluation results for observability
// purposes.
type Sink interface {
	RecordEpoch(stat EpochStat) error
	RecordEvaluation(report Report) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordEpoch(EpochStat) error   { return nil }
func (NopSink) RecordEvaluation(Report) error { return nil }
