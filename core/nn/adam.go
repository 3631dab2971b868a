package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// adam keeps first and second moment estimates for every parameter tensor,
// flattened onto the tensors' backing slices.
type adam struct {
	lr    float64
	iter  int
	slots []adamSlot
}

type adamSlot struct {
	m []float64
	v []float64
}

func newAdam(net *Network, lr float64) *adam {
	a := &adam{lr: lr}
	for _, p := range netParams(net, nil) {
		a.slots = append(a.slots, adamSlot{
			m: make([]float64, len(p)),
			v: make([]float64, len(p)),
		})
	}
	return a
}

// netParams pairs the network's parameter slices with the matching gradient
// slices. With a nil gradients argument only the parameter slices are
// populated; the two calls always enumerate in the same order.
func netParams(net *Network, grad *gradients) [][]float64 {
	var params [][]float64
	add := func(w *mat.Dense, g *mat.Dense) {
		if grad == nil {
			params = append(params, w.RawMatrix().Data)
			return
		}
		params = append(params, g.RawMatrix().Data)
	}
	addVec := func(w, g []float64) {
		if grad == nil {
			params = append(params, w)
			return
		}
		params = append(params, g)
	}
	for i, l := range net.gcn {
		var g *mat.Dense
		if grad != nil {
			g = grad.gcn[i]
		}
		add(l.w, g)
	}
	for i, l := range net.rnn {
		var g *gruGrad
		if grad != nil {
			g = grad.rnn[i]
		}
		if g == nil {
			g = &gruGrad{}
		}
		add(l.wz, g.wz)
		add(l.uz, g.uz)
		add(l.wr, g.wr)
		add(l.ur, g.ur)
		add(l.wh, g.wh)
		add(l.uh, g.uh)
		addVec(l.bz, g.bz)
		addVec(l.br, g.br)
		addVec(l.bh, g.bh)
	}
	var dg *mat.Dense
	var bg []float64
	if grad != nil {
		dg = grad.dense
		bg = grad.bias
	}
	add(net.dense, dg)
	addVec(net.bias, bg)
	return params
}

// step applies one Adam update with bias-corrected moments.
func (a *adam) step(net *Network, grad *gradients) {
	a.iter++
	c1 := 1 - math.Pow(adamBeta1, float64(a.iter))
	c2 := 1 - math.Pow(adamBeta2, float64(a.iter))

	weights := netParams(net, nil)
	grads := netParams(net, grad)
	for i, w := range weights {
		g := grads[i]
		slot := a.slots[i]
		for k := range w {
			slot.m[k] = adamBeta1*slot.m[k] + (1-adamBeta1)*g[k]
			slot.v[k] = adamBeta2*slot.v[k] + (1-adamBeta2)*g[k]*g[k]
			mHat := slot.m[k] / c1
			vHat := slot.v[k] / c2
			w[k] -= a.lr * mHat / (math.Sqrt(vHat) + adamEps)
		}
	}
}
