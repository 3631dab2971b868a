package metrics

import (
	"github.com/kilianp07/roadflow/core/logger"
	coremetrics "github.com/kilianp07/roadflow/core/metrics"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordEpoch forwards the epoch to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordEpoch(stat coremetrics.EpochStat) error {
	for _, s := range m.Sinks {
		if err := s.RecordEpoch(stat); err != nil {
			return err
		}
	}
	return nil
}

// RecordEvaluation forwards the report to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordEvaluation(rep coremetrics.Report) error {
	for _, s := range m.Sinks {
		if err := s.RecordEvaluation(rep); err != nil {
			return err
		}
	}
	return nil
}

// NewSink assembles the configured sinks. With nothing enabled a NopSink is
// returned; a single enabled sink is returned directly.
func NewSink(cfg Config, log logger.Logger) (coremetrics.Sink, error) {
	var sinks []coremetrics.Sink
	if cfg.PrometheusEnabled {
		prom, err := NewPromSink(nil)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, prom)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg, log))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
