package metrics

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/roadflow/core/metrics"
)

func TestPromSinkRecordEpoch(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	stat := coremetrics.EpochStat{Epoch: 1, TrainMAE: 0.25, TrainMSE: 0.125, Duration: 40 * time.Millisecond}
	if err := sink.RecordEpoch(stat); err != nil {
		t.Fatalf("record epoch: %v", err)
	}
	if err := sink.RecordEpoch(stat); err != nil {
		t.Fatalf("record epoch: %v", err)
	}

	expected := `
# HELP forecast_train_epochs_total Total number of completed training epochs
# TYPE forecast_train_epochs_total counter
forecast_train_epochs_total 2
`
	if err := testutil.CollectAndCompare(sink.epochs, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if got := testutil.ToFloat64(sink.trainMAE); got != 0.25 {
		t.Errorf("train mae gauge = %f, want 0.25", got)
	}
}

func TestPromSinkRecordEvaluationSkipsUndefined(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	rep := coremetrics.Report{
		Sensors: []coremetrics.SensorError{
			{ModelMAE: 1, NaiveMAE: 2, MASE: 0.5},
			{ModelMAE: 1, NaiveMAE: 0, MASE: math.NaN()},
		},
		ModelMAE:      1,
		NaiveMAE:      1,
		MeanMASE:      0.5,
		UndefinedMASE: 1,
	}
	if err := sink.RecordEvaluation(rep); err != nil {
		t.Fatalf("record evaluation: %v", err)
	}
	if c := testutil.CollectAndCount(sink.sensorMASE); c != 1 {
		t.Errorf("exported %d per-sensor ratios, want 1 (undefined skipped)", c)
	}
	if got := testutil.ToFloat64(sink.meanMASE); got != 0.5 {
		t.Errorf("mase gauge = %f, want 0.5", got)
	}
}

func TestPromSinkReregistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("second registration should reuse collectors: %v", err)
	}
}

func TestNewSinkDefaultsToNop(t *testing.T) {
	sink, err := NewSink(Config{}, nil)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if _, ok := sink.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", sink)
	}
}
