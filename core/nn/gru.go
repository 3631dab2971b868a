package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// gruLayer runs a gated recurrent cell over each sensor's feature sequence.
// Rows of the input matrices are sensors, so a single matrix pass advances all
// sensors one timestep with shared weights.
type gruLayer struct {
	wz, uz *mat.Dense // update gate: in x out, out x out
	wr, ur *mat.Dense // reset gate
	wh, uh *mat.Dense // candidate state
	bz     []float64
	br     []float64
	bh     []float64
	act    Activation // candidate activation, sigmoid gates are fixed
	in     int
	out    int
}

// gruCache keeps the per-timestep intermediates for backpropagation through
// time. hs[t] is the hidden state after consuming input t; prev(t) is hs[t-1]
// or the zero state.
type gruCache struct {
	xs  []*mat.Dense
	zs  []*mat.Dense
	rs  []*mat.Dense
	hhs []*mat.Dense
	hs  []*mat.Dense
}

// gruGrad accumulates parameter gradients across examples of a batch.
type gruGrad struct {
	wz, uz, wr, ur, wh, uh *mat.Dense
	bz, br, bh             []float64
}

func newGRULayer(in, out int, act Activation, rng *rand.Rand) *gruLayer {
	return &gruLayer{
		wz: glorot(in, out, rng), uz: glorot(out, out, rng),
		wr: glorot(in, out, rng), ur: glorot(out, out, rng),
		wh: glorot(in, out, rng), uh: glorot(out, out, rng),
		bz: make([]float64, out), br: make([]float64, out), bh: make([]float64, out),
		act: act, in: in, out: out,
	}
}

func newGRUGrad(l *gruLayer) *gruGrad {
	return &gruGrad{
		wz: mat.NewDense(l.in, l.out, nil), uz: mat.NewDense(l.out, l.out, nil),
		wr: mat.NewDense(l.in, l.out, nil), ur: mat.NewDense(l.out, l.out, nil),
		wh: mat.NewDense(l.in, l.out, nil), uh: mat.NewDense(l.out, l.out, nil),
		bz: make([]float64, l.out), br: make([]float64, l.out), bh: make([]float64, l.out),
	}
}

// gate computes act(x*w + h*u + b) row-wise.
func gate(x, w, h, u *mat.Dense, b []float64, act Activation) *mat.Dense {
	pre := new(mat.Dense)
	pre.Mul(x, w)
	rec := new(mat.Dense)
	rec.Mul(h, u)
	pre.Add(pre, rec)
	r, c := pre.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, act.apply(pre.At(i, j)+b[j]))
		}
	}
	return out
}

func (l *gruLayer) forward(xs []*mat.Dense) ([]*mat.Dense, *gruCache) {
	n, _ := xs[0].Dims()
	h := mat.NewDense(n, l.out, nil)
	cache := &gruCache{
		xs:  xs,
		zs:  make([]*mat.Dense, len(xs)),
		rs:  make([]*mat.Dense, len(xs)),
		hhs: make([]*mat.Dense, len(xs)),
		hs:  make([]*mat.Dense, len(xs)),
	}
	outs := make([]*mat.Dense, len(xs))
	for t, x := range xs {
		z := gate(x, l.wz, h, l.uz, l.bz, Sigmoid)
		rg := gate(x, l.wr, h, l.ur, l.br, Sigmoid)

		rh := hadamard(rg, h)
		hh := gate(x, l.wh, rh, l.uh, l.bh, l.act)

		next := mat.NewDense(n, l.out, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < l.out; j++ {
				zv := z.At(i, j)
				next.Set(i, j, zv*h.At(i, j)+(1-zv)*hh.At(i, j))
			}
		}
		cache.zs[t] = z
		cache.rs[t] = rg
		cache.hhs[t] = hh
		cache.hs[t] = next
		outs[t] = next
		h = next
	}
	return outs, cache
}

func (c *gruCache) prev(t int) *mat.Dense {
	if t == 0 {
		n, u := c.hs[0].Dims()
		return mat.NewDense(n, u, nil)
	}
	return c.hs[t-1]
}

// backward propagates gradients through time. dOut holds dL/dh per timestep;
// entries may be nil when only the final hidden state feeds the next layer.
// Parameter gradients are accumulated into grad and dL/dx per timestep is
// returned.
func (l *gruLayer) backward(cache *gruCache, dOut []*mat.Dense, grad *gruGrad) []*mat.Dense {
	steps := len(cache.xs)
	n, _ := cache.xs[0].Dims()
	dxs := make([]*mat.Dense, steps)
	dh := mat.NewDense(n, l.out, nil)

	for t := steps - 1; t >= 0; t-- {
		if dOut[t] != nil {
			dh.Add(dh, dOut[t])
		}
		z, rg, hh := cache.zs[t], cache.rs[t], cache.hhs[t]
		prev := cache.prev(t)

		dz := mat.NewDense(n, l.out, nil)
		dhh := mat.NewDense(n, l.out, nil)
		dhPrev := mat.NewDense(n, l.out, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < l.out; j++ {
				g := dh.At(i, j)
				zv := z.At(i, j)
				dz.Set(i, j, g*(prev.At(i, j)-hh.At(i, j)))
				dhh.Set(i, j, g*(1-zv))
				dhPrev.Set(i, j, g*zv)
			}
		}

		dhhPre := hadamardActDeriv(dhh, hh, l.act)
		dzPre := hadamardActDeriv(dz, z, Sigmoid)

		// Candidate-state path: reset gate and recurrent contribution.
		drh := new(mat.Dense)
		drh.Mul(dhhPre, l.uh.T())
		dr := hadamard(drh, prev)
		drPre := hadamardActDeriv(dr, rg, Sigmoid)
		dhPrev.Add(dhPrev, hadamard(drh, rg))

		accumulateMulT(grad.wh, cache.xs[t], dhhPre)
		accumulateMulT(grad.uh, hadamard(rg, prev), dhhPre)
		accumulateColSums(grad.bh, dhhPre)

		accumulateMulT(grad.wz, cache.xs[t], dzPre)
		accumulateMulT(grad.uz, prev, dzPre)
		accumulateColSums(grad.bz, dzPre)

		accumulateMulT(grad.wr, cache.xs[t], drPre)
		accumulateMulT(grad.ur, prev, drPre)
		accumulateColSums(grad.br, drPre)

		dx := new(mat.Dense)
		dx.Mul(dzPre, l.wz.T())
		tmp := new(mat.Dense)
		tmp.Mul(drPre, l.wr.T())
		dx.Add(dx, tmp)
		tmp.Reset()
		tmp.Mul(dhhPre, l.wh.T())
		dx.Add(dx, tmp)
		dxs[t] = dx

		tmp.Reset()
		tmp.Mul(dzPre, l.uz.T())
		dhPrev.Add(dhPrev, tmp)
		tmp.Reset()
		tmp.Mul(drPre, l.ur.T())
		dhPrev.Add(dhPrev, tmp)

		dh = dhPrev
	}
	return dxs
}

func hadamard(a, b *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.MulElem(a, b)
	return out
}

// accumulateMulT adds a^T * b into dst.
func accumulateMulT(dst, a, b *mat.Dense) {
	prod := new(mat.Dense)
	prod.Mul(a.T(), b)
	dst.Add(dst, prod)
}

// accumulateColSums adds the column sums of m into dst, matching the bias
// layout shared across sensors.
func accumulateColSums(dst []float64, m *mat.Dense) {
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			dst[j] += m.At(i, j)
		}
	}
}
