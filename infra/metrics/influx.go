package metrics

import (
	"context"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/roadflow/core/logger"
	coremetrics "github.com/kilianp07/roadflow/core/metrics"
)

// InfluxSink writes training progress and evaluation results to an InfluxDB
// instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string, log logger.Logger) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      log,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// when the health check fails, so a missing database never blocks a training
// run.
func NewInfluxSinkWithFallback(cfg Config, log logger.Logger) coremetrics.Sink {
	sink := NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			log.Errorf("influx health check error: %v", err)
		} else {
			log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordEpoch writes one point per completed epoch.
func (s *InfluxSink) RecordEpoch(stat coremetrics.EpochStat) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("train_epoch").
		AddField("epoch", stat.Epoch).
		AddField("mae", stat.TrainMAE).
		AddField("mse", stat.TrainMSE).
		AddField("duration_ms", stat.Duration.Milliseconds()).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordEvaluation writes the aggregate results plus one point per sensor.
// Undefined scaled-error ratios are written without a mase field.
func (s *InfluxSink) RecordEvaluation(rep coremetrics.Report) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now()

	agg := write.NewPointWithMeasurement("evaluation").
		AddField("model_mae", rep.ModelMAE).
		AddField("naive_mae", rep.NaiveMAE).
		AddField("rmse", rep.RMSE).
		AddField("undefined_mase", rep.UndefinedMASE).
		SetTime(now)
	if rep.UndefinedMASE < len(rep.Sensors) {
		agg.AddField("mase", rep.MeanMASE)
	}
	if err := s.writeAPI.WritePoint(ctx, agg); err != nil {
		return err
	}

	for i, se := range rep.Sensors {
		p := write.NewPointWithMeasurement("sensor_evaluation").
			AddTag("sensor", strconv.Itoa(i)).
			AddField("model_mae", se.ModelMAE).
			AddField("naive_mae", se.NaiveMAE).
			SetTime(now)
		if !se.Undefined() {
			p.AddField("mase", se.MASE)
		}
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
