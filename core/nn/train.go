package nn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/roadflow/core/logger"
	"github.com/kilianp07/roadflow/core/metrics"
)

// ErrNoExamples is returned when Fit is called with an empty training set.
var ErrNoExamples = errors.New("no training examples")

// Trainer runs mini-batch gradient descent with an Adam optimizer, minimizing
// mean absolute error and tracking mean squared error as a secondary metric.
type Trainer struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
	Log          logger.Logger
	Sink         metrics.Sink
}

// gradients mirrors the network's parameter layout.
type gradients struct {
	gcn   []*mat.Dense
	rnn   []*gruGrad
	dense *mat.Dense
	bias  []float64
}

func newGradients(n *Network) *gradients {
	g := &gradients{
		dense: mat.NewDense(denseRows(n), 1, nil),
		bias:  make([]float64, len(n.bias)),
	}
	for _, l := range n.gcn {
		g.gcn = append(g.gcn, mat.NewDense(l.in, l.out, nil))
	}
	for _, l := range n.rnn {
		g.rnn = append(g.rnn, newGRUGrad(l))
	}
	return g
}

func denseRows(n *Network) int {
	r, _ := n.dense.Dims()
	return r
}

// backward pushes the prediction gradient of one example through the stack,
// accumulating parameter gradients. dPred holds dL/dprediction per sensor.
func (n *Network) backward(cache *forwardCache, dPred []float64, grad *gradients) {
	hw, _ := n.dense.Dims()

	dHidden := mat.NewDense(n.sensors, hw, nil)
	for s := 0; s < n.sensors; s++ {
		grad.bias[0] += dPred[s]
		for j := 0; j < hw; j++ {
			grad.dense.Set(j, 0, grad.dense.At(j, 0)+cache.hidden.At(s, j)*dPred[s])
			dHidden.Set(s, j, dPred[s]*n.dense.At(j, 0))
		}
	}
	if cache.mask != nil {
		dHidden = hadamard(dHidden, cache.mask)
	}

	// Recurrent stack in reverse. The last layer only exposes its final
	// hidden state, so earlier timesteps carry no direct gradient.
	dSeq := make([]*mat.Dense, n.seqLen)
	dSeq[n.seqLen-1] = dHidden
	for i := len(n.rnn) - 1; i >= 0; i-- {
		dSeq = n.rnn[i].backward(cache.rnn[i], dSeq, grad.rnn[i])
	}
	for i := len(n.gcn) - 1; i >= 0; i-- {
		dSeq = n.gcn[i].backward(n.prop, cache.gcn[i], dSeq, grad.gcn[i])
	}
}

// Fit trains the network in place. The context is checked between epochs so a
// canceled run stops at an epoch boundary with the parameters as of the last
// completed update.
func (t Trainer) Fit(ctx context.Context, net *Network, xs []*mat.Dense, ys *mat.Dense) error {
	if len(xs) == 0 {
		return ErrNoExamples
	}
	yr, yc := ys.Dims()
	if yr != len(xs) || yc != net.sensors {
		return fmt.Errorf("targets %dx%d do not match %d examples over %d sensors: %w",
			yr, yc, len(xs), net.sensors, ErrDimensionMismatch)
	}
	if t.Epochs < 1 || t.LearningRate <= 0 {
		return fmt.Errorf("epochs %d, learning rate %f: %w", t.Epochs, t.LearningRate, ErrConfigMismatch)
	}
	batch := t.BatchSize
	if batch < 1 || batch > len(xs) {
		batch = len(xs)
	}
	log := t.Log
	if log == nil {
		log = logger.NopLogger{}
	}

	opt := newAdam(net, t.LearningRate)
	rng := rand.New(rand.NewSource(t.Seed))
	order := rng.Perm(len(xs))

	for epoch := 1; epoch <= t.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("training interrupted at epoch %d: %w", epoch, err)
		}
		start := time.Now()
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		sumAbs, sumSq := 0.0, 0.0
		for lo := 0; lo < len(order); lo += batch {
			hi := lo + batch
			if hi > len(order) {
				hi = len(order)
			}
			grad := newGradients(net)
			scale := 1 / float64((hi-lo)*net.sensors)
			for _, idx := range order[lo:hi] {
				cache, err := net.forward(xs[idx], true)
				if err != nil {
					return fmt.Errorf("example %d: %w", idx, err)
				}
				dPred := make([]float64, net.sensors)
				for s := 0; s < net.sensors; s++ {
					diff := cache.pred[s] - ys.At(idx, s)
					sumAbs += math.Abs(diff)
					sumSq += diff * diff
					// Subgradient of mean absolute error.
					switch {
					case diff > 0:
						dPred[s] = scale
					case diff < 0:
						dPred[s] = -scale
					}
				}
				net.backward(cache, dPred, grad)
			}
			opt.step(net, grad)
		}

		total := float64(len(xs) * net.sensors)
		stat := metrics.EpochStat{
			Epoch:    epoch,
			TrainMAE: sumAbs / total,
			TrainMSE: sumSq / total,
			Duration: time.Since(start),
		}
		log.Debugf("epoch %d/%d mae=%.6f mse=%.6f", epoch, t.Epochs, stat.TrainMAE, stat.TrainMSE)
		if t.Sink != nil {
			if err := t.Sink.RecordEpoch(stat); err != nil {
				log.Warnf("record epoch %d: %v", epoch, err)
			}
		}
	}
	return nil
}
