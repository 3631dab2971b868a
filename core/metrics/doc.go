package metrics

// Package metrics evaluates forecast quality and defines the Sink interface
// used to record training progress. Evaluate compares model predictions with
// a naive last-observation baseline per sensor, producing mean absolute
// errors and mean-absolute-scaled-error ratios. Sink implementations live in
// infra/metrics and can be combined with a multi sink.
