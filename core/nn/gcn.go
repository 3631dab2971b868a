package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// gcnLayer applies H' = act(P*H*W) to every timestep slice independently. W is
// shared across timesteps and sensors; P is the fixed propagation matrix.
type gcnLayer struct {
	w   *mat.Dense // in x out
	act Activation
	in  int
	out int
}

// gcnCache stores the intermediates of one example's forward pass needed by
// the backward pass: P*H and the activated output per timestep.
type gcnCache struct {
	mixed []*mat.Dense // P*H, sensors x in
	out   []*mat.Dense // sensors x out
}

func newGCNLayer(in, out int, act Activation, rng *rand.Rand) *gcnLayer {
	return &gcnLayer{w: glorot(in, out, rng), act: act, in: in, out: out}
}

func (l *gcnLayer) forward(prop *mat.Dense, steps []*mat.Dense) ([]*mat.Dense, *gcnCache) {
	cache := &gcnCache{
		mixed: make([]*mat.Dense, len(steps)),
		out:   make([]*mat.Dense, len(steps)),
	}
	outs := make([]*mat.Dense, len(steps))
	for t, h := range steps {
		mixed := new(mat.Dense)
		mixed.Mul(prop, h)
		pre := new(mat.Dense)
		pre.Mul(mixed, l.w)
		out := applyActivation(pre, l.act)
		cache.mixed[t] = mixed
		cache.out[t] = out
		outs[t] = out
	}
	return outs, cache
}

// backward accumulates dL/dW into grad and returns dL/dH per timestep. The
// propagation matrix is symmetric so its transpose is itself.
func (l *gcnLayer) backward(prop *mat.Dense, cache *gcnCache, dOut []*mat.Dense, grad *mat.Dense) []*mat.Dense {
	dIn := make([]*mat.Dense, len(dOut))
	for t, d := range dOut {
		dPre := hadamardActDeriv(d, cache.out[t], l.act)

		dW := new(mat.Dense)
		dW.Mul(cache.mixed[t].T(), dPre)
		grad.Add(grad, dW)

		dMixed := new(mat.Dense)
		dMixed.Mul(dPre, l.w.T())
		dh := new(mat.Dense)
		dh.Mul(prop, dMixed)
		dIn[t] = dh
	}
	return dIn
}

// glorot draws a uniform Glorot-initialized in x out weight matrix.
func glorot(in, out int, rng *rand.Rand) *mat.Dense {
	limit := math.Sqrt(6 / float64(in+out))
	w := mat.NewDense(in, out, nil)
	for i := 0; i < in; i++ {
		for j := 0; j < out; j++ {
			w.Set(i, j, (rng.Float64()*2-1)*limit)
		}
	}
	return w
}

// applyActivation returns act(m) without touching m.
func applyActivation(m *mat.Dense, act Activation) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, act.apply(m.At(i, j)))
		}
	}
	return out
}

// hadamardActDeriv computes d ⊙ act'(y) where y is the cached activation
// output.
func hadamardActDeriv(d, y *mat.Dense, act Activation) *mat.Dense {
	r, c := d.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, d.At(i, j)*act.derivFromOutput(y.At(i, j)))
		}
	}
	return out
}
