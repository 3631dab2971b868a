package graph

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNormalizeRejectsNonSquare(t *testing.T) {
	_, err := Normalize(mat.NewDense(2, 3, nil))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNormalizeIdentityGraph(t *testing.T) {
	// No edges: A+I = I, degrees all 1, so P must be the identity.
	p, err := Normalize(mat.NewDense(3, 3, nil))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(p.At(i, j)-want) > 1e-12 {
				t.Fatalf("p[%d][%d]=%f want %f", i, j, p.At(i, j), want)
			}
		}
	}
}

func TestNormalizeKnownValues(t *testing.T) {
	// Two nodes joined by a unit edge: degrees are 2, P = [[0.5,0.5],[0.5,0.5]].
	adj := mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	p, err := Normalize(adj)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(p.At(i, j)-0.5) > 1e-12 {
				t.Fatalf("p[%d][%d]=%f want 0.5", i, j, p.At(i, j))
			}
		}
	}
}

func randomSymmetric(rng *rand.Rand, n int) *mat.Dense {
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			w := 0.0
			if rng.Float64() < 0.6 {
				w = rng.Float64() * 10
			}
			a.Set(i, j, w)
			a.Set(j, i, w)
		}
	}
	return a
}

func TestNormalizeSymmetryAndSpectralBound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := 2 + rng.Intn(6)
		a := randomSymmetric(rng, n)
		p, err := Normalize(a)
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if math.Abs(p.At(i, j)-p.At(j, i)) > 1e-12 {
					t.Fatalf("trial %d: result not symmetric at (%d,%d)", trial, i, j)
				}
			}
		}
		sym := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				sym.SetSym(i, j, p.At(i, j))
			}
		}
		var eig mat.EigenSym
		if !eig.Factorize(sym, false) {
			t.Fatalf("trial %d: eigen factorization failed", trial)
		}
		for _, v := range eig.Values(nil) {
			if math.Abs(v) > 1+1e-9 {
				t.Fatalf("trial %d: eigenvalue %f outside [-1,1]", trial, v)
			}
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := randomSymmetric(rng, 5)
	p1, err := Normalize(a)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	p2, err := Normalize(a)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !mat.Equal(p1, p2) {
		t.Fatalf("repeated normalization differs")
	}
}
