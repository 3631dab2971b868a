package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Network is the assembled graph-convolution and recurrent forecasting model.
// It maps a batch of sensors x seq_len input windows to one predicted value
// per sensor. Parameters are owned by the network and mutated only through
// Trainer.Fit; Predict never writes to them.
type Network struct {
	prop    *mat.Dense
	sensors int
	seqLen  int

	gcn     []*gcnLayer
	rnn     []*gruLayer
	dropout float64
	dense   *mat.Dense // hidden x outWidth
	bias    []float64

	rng *rand.Rand
}

// Build validates the layer stack and assembles the network. The stack must
// contain the layers in order: zero or more GraphConv, at least one Recurrent,
// an optional Dropout, and exactly one trailing Dense projection. seed drives
// weight initialization and dropout masks.
func Build(prop *mat.Dense, seqLen int, seed int64, specs ...LayerSpec) (*Network, error) {
	pr, pc := prop.Dims()
	if pr != pc {
		return nil, fmt.Errorf("propagation matrix %dx%d not square: %w", pr, pc, ErrDimensionMismatch)
	}
	if seqLen < 1 {
		return nil, fmt.Errorf("seq_len %d: %w", seqLen, ErrConfigMismatch)
	}
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewSource(seed))
	net := &Network{prop: prop, sensors: pr, seqLen: seqLen, rng: rng}

	// Scalar speed per sensor enters the first layer.
	width := 1
	stage := 0 // 0=gcn, 1=rnn, 2=dropout seen, 3=dense seen
	for _, s := range specs {
		switch l := s.(type) {
		case GraphConv:
			if stage > 0 {
				return nil, fmt.Errorf("graph conv after recurrent stack: %w", ErrConfigMismatch)
			}
			net.gcn = append(net.gcn, newGCNLayer(width, l.Width, l.Activation, rng))
			width = l.Width
		case Recurrent:
			if stage > 1 {
				return nil, fmt.Errorf("recurrent layer after dropout or dense: %w", ErrConfigMismatch)
			}
			stage = 1
			net.rnn = append(net.rnn, newGRULayer(width, l.Width, l.Activation, rng))
			width = l.Width
		case Dropout:
			if stage != 1 {
				return nil, fmt.Errorf("dropout must follow the recurrent stack: %w", ErrConfigMismatch)
			}
			stage = 2
			net.dropout = l.Rate
		case Dense:
			if stage != 1 && stage != 2 {
				return nil, fmt.Errorf("dense projection must terminate the stack: %w", ErrConfigMismatch)
			}
			stage = 3
			net.dense = glorot(width, l.Width, rng)
			net.bias = make([]float64, l.Width)
		default:
			return nil, fmt.Errorf("unsupported layer %T: %w", s, ErrConfigMismatch)
		}
	}
	if len(net.rnn) == 0 {
		return nil, fmt.Errorf("at least one recurrent layer required: %w", ErrConfigMismatch)
	}
	if net.dense == nil {
		return nil, fmt.Errorf("missing dense projection: %w", ErrConfigMismatch)
	}
	if _, dc := net.dense.Dims(); dc != 1 {
		return nil, fmt.Errorf("dense projection must emit one value per sensor: %w", ErrConfigMismatch)
	}
	return net, nil
}

// Sensors returns the node count the network was built for.
func (n *Network) Sensors() int { return n.sensors }

// forwardCache records one example's intermediates for the backward pass.
type forwardCache struct {
	gcn    []*gcnCache
	rnn    []*gruCache
	mask   *mat.Dense // dropout mask applied to the final hidden state, nil at inference
	hidden *mat.Dense // final hidden state after dropout
	pred   []float64
}

// checkInput validates one example window against the network's shape.
func (n *Network) checkInput(x *mat.Dense) error {
	r, c := x.Dims()
	if r != n.sensors {
		return fmt.Errorf("input has %d sensors, propagation matrix has %d: %w", r, n.sensors, ErrDimensionMismatch)
	}
	if c != n.seqLen {
		return fmt.Errorf("input has %d timesteps, expected %d: %w", c, n.seqLen, ErrDimensionMismatch)
	}
	return nil
}

// forward runs one example through the stack. When training is true the
// dropout mask is sampled and recorded for the backward pass.
func (n *Network) forward(x *mat.Dense, training bool) (*forwardCache, error) {
	if err := n.checkInput(x); err != nil {
		return nil, err
	}
	cache := &forwardCache{}

	// Per-timestep scalar features as sensors x 1 slices.
	steps := make([]*mat.Dense, n.seqLen)
	for t := 0; t < n.seqLen; t++ {
		col := mat.NewDense(n.sensors, 1, nil)
		for s := 0; s < n.sensors; s++ {
			col.Set(s, 0, x.At(s, t))
		}
		steps[t] = col
	}

	for _, l := range n.gcn {
		var c *gcnCache
		steps, c = l.forward(n.prop, steps)
		cache.gcn = append(cache.gcn, c)
	}
	for _, l := range n.rnn {
		var c *gruCache
		steps, c = l.forward(steps)
		cache.rnn = append(cache.rnn, c)
	}

	hidden := steps[len(steps)-1]
	if training && n.dropout > 0 {
		r, c := hidden.Dims()
		mask := mat.NewDense(r, c, nil)
		keep := 1 - n.dropout
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if n.rng.Float64() < keep {
					mask.Set(i, j, 1/keep)
				}
			}
		}
		hidden = hadamard(hidden, mask)
		cache.mask = mask
	}
	cache.hidden = hidden

	pred := make([]float64, n.sensors)
	_, hw := hidden.Dims()
	for s := 0; s < n.sensors; s++ {
		v := n.bias[0]
		for j := 0; j < hw; j++ {
			v += hidden.At(s, j) * n.dense.At(j, 0)
		}
		pred[s] = v
	}
	cache.pred = pred
	return cache, nil
}

// Predict runs inference on a batch of windows and returns an examples x
// sensors matrix. Dropout is disabled.
func (n *Network) Predict(batch []*mat.Dense) (*mat.Dense, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("empty batch: %w", ErrDimensionMismatch)
	}
	out := mat.NewDense(len(batch), n.sensors, nil)
	for i, x := range batch {
		cache, err := n.forward(x, false)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		out.SetRow(i, cache.pred)
	}
	return out, nil
}
