package nn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func identityProp(n int) *mat.Dense {
	p := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		p.Set(i, i, 1)
	}
	return p
}

func TestBuildValidation(t *testing.T) {
	prop := identityProp(2)
	tests := []struct {
		name  string
		specs []LayerSpec
	}{
		{name: "empty stack", specs: nil},
		{name: "missing dense", specs: []LayerSpec{Recurrent{Width: 4, Activation: Tanh}}},
		{name: "missing recurrent", specs: []LayerSpec{GraphConv{Width: 4, Activation: ReLU}, Dense{Width: 1}}},
		{name: "zero width", specs: []LayerSpec{Recurrent{Width: 0, Activation: Tanh}, Dense{Width: 1}}},
		{name: "bad activation", specs: []LayerSpec{Recurrent{Width: 4, Activation: "softmax"}, Dense{Width: 1}}},
		{name: "bad dropout", specs: []LayerSpec{Recurrent{Width: 4, Activation: Tanh}, Dropout{Rate: 1}, Dense{Width: 1}}},
		{name: "gcn after rnn", specs: []LayerSpec{Recurrent{Width: 4, Activation: Tanh}, GraphConv{Width: 4, Activation: ReLU}, Dense{Width: 1}}},
		{name: "dropout before rnn", specs: []LayerSpec{Dropout{Rate: 0.5}, Recurrent{Width: 4, Activation: Tanh}, Dense{Width: 1}}},
		{name: "wide dense", specs: []LayerSpec{Recurrent{Width: 4, Activation: Tanh}, Dense{Width: 2}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(prop, 3, 1, tc.specs...)
			if !errors.Is(err, ErrConfigMismatch) {
				t.Fatalf("expected ErrConfigMismatch, got %v", err)
			}
		})
	}
}

func TestBuildRejectsNonSquareProp(t *testing.T) {
	_, err := Build(mat.NewDense(2, 3, nil), 3, 1,
		Recurrent{Width: 4, Activation: Tanh}, Dense{Width: 1})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPredictShapeAndDimChecks(t *testing.T) {
	net, err := Build(identityProp(3), 4, 1,
		GraphConv{Width: 4, Activation: ReLU},
		Recurrent{Width: 5, Activation: Tanh},
		Dropout{Rate: 0.2},
		Dense{Width: 1},
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	batch := []*mat.Dense{mat.NewDense(3, 4, nil), mat.NewDense(3, 4, nil)}
	out, err := net.Predict(batch)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if r, c := out.Dims(); r != 2 || c != 3 {
		t.Fatalf("output shape = %dx%d, want 2x3", r, c)
	}

	if _, err := net.Predict([]*mat.Dense{mat.NewDense(2, 4, nil)}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected sensor mismatch, got %v", err)
	}
	if _, err := net.Predict([]*mat.Dense{mat.NewDense(3, 5, nil)}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected seq_len mismatch, got %v", err)
	}
}

func TestPredictDeterministicWithoutTraining(t *testing.T) {
	// Dropout must be inactive at inference, so repeated predictions agree.
	net, err := Build(identityProp(2), 3, 9,
		Recurrent{Width: 4, Activation: Tanh},
		Dropout{Rate: 0.5},
		Dense{Width: 1},
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	x := []*mat.Dense{mat.NewDense(2, 3, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})}
	a, err := net.Predict(x)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	b, err := net.Predict(x)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !mat.Equal(a, b) {
		t.Fatalf("inference is not deterministic")
	}
}

func TestGraphConvMixesAcrossSensors(t *testing.T) {
	// With a uniform propagation matrix every sensor sees the same mixed
	// feature, so predictions must coincide across sensors.
	prop := mat.NewDense(2, 2, []float64{0.5, 0.5, 0.5, 0.5})
	net, err := Build(prop, 2, 3,
		GraphConv{Width: 3, Activation: Linear},
		Recurrent{Width: 3, Activation: Tanh},
		Dense{Width: 1},
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	x := []*mat.Dense{mat.NewDense(2, 2, []float64{1, 2, 5, 6})}
	out, err := net.Predict(x)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(out.At(0, 0)-out.At(0, 1)) > 1e-12 {
		t.Fatalf("uniform mixing should equalize sensors: %f vs %f", out.At(0, 0), out.At(0, 1))
	}
}

func TestGRUZeroWeightsHoldZeroState(t *testing.T) {
	// With all weights and biases zero the gates sit at 0.5 and the candidate
	// at act(0)=0, so the hidden state stays zero at every timestep.
	l := newGRULayer(1, 3, Tanh, rand.New(rand.NewSource(1)))
	for _, w := range []*mat.Dense{l.wz, l.uz, l.wr, l.ur, l.wh, l.uh} {
		w.Zero()
	}
	xs := []*mat.Dense{
		mat.NewDense(2, 1, []float64{0.4, -1.2}),
		mat.NewDense(2, 1, []float64{2.5, 0.7}),
		mat.NewDense(2, 1, []float64{-0.3, 1.1}),
	}
	outs, _ := l.forward(xs)
	for t2, h := range outs {
		r, c := h.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if h.At(i, j) != 0 {
					t.Fatalf("timestep %d: hidden (%d,%d) = %f, want 0", t2, i, j, h.At(i, j))
				}
			}
		}
	}
}

func TestActivations(t *testing.T) {
	if ReLU.apply(-2) != 0 || ReLU.apply(3) != 3 {
		t.Fatalf("relu misbehaves")
	}
	if math.Abs(Sigmoid.apply(0)-0.5) > 1e-12 {
		t.Fatalf("sigmoid(0) = %f", Sigmoid.apply(0))
	}
	if Tanh.apply(0) != 0 || Linear.apply(1.5) != 1.5 {
		t.Fatalf("tanh/linear misbehave")
	}
	// Output-form derivatives.
	if Sigmoid.derivFromOutput(0.5) != 0.25 {
		t.Fatalf("sigmoid derivative")
	}
	if Tanh.derivFromOutput(0) != 1 {
		t.Fatalf("tanh derivative")
	}
	if _, err := ParseActivation("swish"); !errors.Is(err, ErrConfigMismatch) {
		t.Fatalf("expected ErrConfigMismatch for unknown activation")
	}
}
