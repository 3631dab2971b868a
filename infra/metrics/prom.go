package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/roadflow/core/metrics"
)

// PromSink exposes training progress and evaluation results as Prometheus
// metrics.
type PromSink struct {
	epochs     prometheus.Counter
	trainMAE   prometheus.Gauge
	trainMSE   prometheus.Gauge
	epochTime  prometheus.Histogram
	modelMAE   prometheus.Gauge
	naiveMAE   prometheus.Gauge
	meanMASE   prometheus.Gauge
	sensorMASE *prometheus.GaugeVec
}

// NewPromSink registers the forecast metrics on the provided registerer. If
// reg is nil, the default registerer is used. Already registered collectors
// are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forecast_train_epochs_total",
			Help: "Total number of completed training epochs",
		}),
		trainMAE: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forecast_train_mae",
			Help: "Mean absolute training error of the last epoch",
		}),
		trainMSE: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forecast_train_mse",
			Help: "Mean squared training error of the last epoch",
		}),
		epochTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "forecast_epoch_duration_seconds",
			Help:    "Wall-clock duration per training epoch",
			Buckets: prometheus.DefBuckets,
		}),
		modelMAE: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forecast_eval_model_mae",
			Help: "Aggregate model mean absolute error on the test partition",
		}),
		naiveMAE: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forecast_eval_naive_mae",
			Help: "Aggregate naive-baseline mean absolute error on the test partition",
		}),
		meanMASE: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forecast_eval_mase",
			Help: "Mean absolute scaled error over sensors with a defined ratio",
		}),
		sensorMASE: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_eval_sensor_mase",
			Help: "Per-sensor mean absolute scaled error",
		}, []string{"sensor"}),
	}

	collectors := []prometheus.Collector{
		s.epochs, s.trainMAE, s.trainMSE, s.epochTime,
		s.modelMAE, s.naiveMAE, s.meanMASE, s.sensorMASE,
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	s.epochs = collectors[0].(prometheus.Counter)
	s.trainMAE = collectors[1].(prometheus.Gauge)
	s.trainMSE = collectors[2].(prometheus.Gauge)
	s.epochTime = collectors[3].(prometheus.Histogram)
	s.modelMAE = collectors[4].(prometheus.Gauge)
	s.naiveMAE = collectors[5].(prometheus.Gauge)
	s.meanMASE = collectors[6].(prometheus.Gauge)
	s.sensorMASE = collectors[7].(*prometheus.GaugeVec)
	return s, nil
}

// RecordEpoch updates the training gauges for a completed epoch.
func (s *PromSink) RecordEpoch(stat coremetrics.EpochStat) error {
	s.epochs.Inc()
	s.trainMAE.Set(stat.TrainMAE)
	s.trainMSE.Set(stat.TrainMSE)
	s.epochTime.Observe(stat.Duration.Seconds())
	return nil
}

// RecordEvaluation publishes aggregate and per-sensor evaluation results.
// Sensors with an undefined scaled error are skipped rather than exported as
// NaN.
func (s *PromSink) RecordEvaluation(rep coremetrics.Report) error {
	s.modelMAE.Set(rep.ModelMAE)
	s.naiveMAE.Set(rep.NaiveMAE)
	s.meanMASE.Set(rep.MeanMASE)
	for i, se := range rep.Sensors {
		if se.Undefined() {
			continue
		}
		s.sensorMASE.WithLabelValues(strconv.Itoa(i)).Set(se.MASE)
	}
	return nil
}
