// Package pipeline wires the forecasting stages end to end: graph
// normalization, chronological split, scaling, windowing, training and
// evaluation. All inputs are passed explicitly; the pipeline holds no global
// state.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/roadflow/core/dataset"
	"github.com/kilianp07/roadflow/core/graph"
	"github.com/kilianp07/roadflow/core/logger"
	"github.com/kilianp07/roadflow/core/metrics"
	"github.com/kilianp07/roadflow/core/nn"
	"github.com/kilianp07/roadflow/core/scale"
)

// Params configures one pipeline run. Layers describe the model stack in
// order; remaining fields drive windowing and training.
type Params struct {
	SeqLen       int
	PreLen       int
	TrainPortion float64
	Layers       []nn.LayerSpec
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
}

// Pipeline runs the full forecasting workflow on in-memory matrices.
type Pipeline struct {
	params Params
	log    logger.Logger
	sink   metrics.Sink
}

// Result carries the trained model and its evaluation. Predictions, Truth and
// Naive are test-partition matrices (examples x sensors) already rescaled for
// reporting.
type Result struct {
	RunID       string
	Model       *nn.Network
	Scale       scale.MinMax
	Report      metrics.Report
	Predictions *mat.Dense
	Truth       *mat.Dense
	Naive       *mat.Dense
}

// New validates the parameters and returns a ready pipeline. A nil sink
// disables progress recording.
func New(p Params, log logger.Logger, sink metrics.Sink) (*Pipeline, error) {
	if p.SeqLen < 1 || p.PreLen < 1 {
		return nil, fmt.Errorf("seq_len %d and pre_len %d must be positive: %w", p.SeqLen, p.PreLen, nn.ErrConfigMismatch)
	}
	if p.TrainPortion <= 0 || p.TrainPortion >= 1 {
		return nil, fmt.Errorf("train_portion %f outside (0,1): %w", p.TrainPortion, nn.ErrConfigMismatch)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Pipeline{params: p, log: log, sink: sink}, nil
}

// Run executes the pipeline on the observation matrix (sensors x timesteps)
// and the adjacency matrix (sensors x sensors). Training is synchronous;
// cancellation is honored at epoch boundaries.
func (p *Pipeline) Run(ctx context.Context, obs, adj *mat.Dense) (*Result, error) {
	runID := uuid.NewString()
	sensors, steps := obs.Dims()
	if ar, _ := adj.Dims(); ar != sensors {
		return nil, fmt.Errorf("adjacency has %d nodes, observations have %d sensors: %w",
			ar, sensors, graph.ErrDimensionMismatch)
	}
	p.log.Infof("run %s: %d sensors, %d timesteps", runID, sensors, steps)

	prop, err := graph.Normalize(adj)
	if err != nil {
		return nil, fmt.Errorf("normalize adjacency: %w", err)
	}

	train, test := dataset.Split(obs, p.params.TrainPortion)
	bounds, err := scale.Fit(train)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	set, err := dataset.Prepare(p.params.SeqLen, p.params.PreLen, bounds.Transform(train), bounds.Transform(test))
	if err != nil {
		return nil, fmt.Errorf("window partitions: %w", err)
	}
	p.log.Debugw("windowing complete", map[string]any{
		"run_id":         runID,
		"train_examples": len(set.TrainX),
		"test_examples":  len(set.TestX),
	})

	net, err := nn.Build(prop, p.params.SeqLen, p.params.Seed, p.params.Layers...)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	trainer := nn.Trainer{
		Epochs:       p.params.Epochs,
		BatchSize:    p.params.BatchSize,
		LearningRate: p.params.LearningRate,
		Seed:         p.params.Seed,
		Log:          p.log,
		Sink:         p.sink,
	}
	if err := trainer.Fit(ctx, net, set.TrainX, set.TrainY); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	preds, err := net.Predict(set.TestX)
	if err != nil {
		return nil, fmt.Errorf("predict test partition: %w", err)
	}
	naive := naiveBaseline(set.TestX)

	res := &Result{
		RunID:       runID,
		Model:       net,
		Scale:       bounds,
		Predictions: bounds.InverseReportMatrix(preds),
		Truth:       bounds.InverseReportMatrix(set.TestY),
		Naive:       bounds.InverseReportMatrix(naive),
	}
	res.Report, err = metrics.Evaluate(res.Truth, res.Predictions, res.Naive)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if err := p.sink.RecordEvaluation(res.Report); err != nil {
		p.log.Warnf("record evaluation: %v", err)
	}
	p.log.Infof("run %s: model mae=%.4f naive mae=%.4f mase=%.4f",
		runID, res.Report.ModelMAE, res.Report.NaiveMAE, res.Report.MeanMASE)
	return res, nil
}

// naiveBaseline predicts the last observed window value for every sensor.
func naiveBaseline(windows []*mat.Dense) *mat.Dense {
	n, seqLen := windows[0].Dims()
	out := mat.NewDense(len(windows), n, nil)
	for i, w := range windows {
		for s := 0; s < n; s++ {
			out.Set(i, s, w.At(s, seqLen-1))
		}
	}
	return out
}
