// Package graph derives the propagation operator used by graph convolution
// from a raw sensor distance matrix.
package graph

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when a matrix does not have the expected
// shape, e.g. a non-square adjacency matrix.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Normalize converts a symmetric, non-negative adjacency matrix into the
// degree-normalized propagation matrix
//
//	P = D^{-1/2} (A + I) D^{-1/2}
//
// where D is the diagonal degree matrix of A+I. The self-loop guarantees every
// degree is at least one, so the inverse square root is always defined. The
// result is symmetric and its spectral radius is bounded by one. Normalize is a
// pure function: the input is not modified and identical inputs yield identical
// outputs.
func Normalize(adj *mat.Dense) (*mat.Dense, error) {
	r, c := adj.Dims()
	if r != c {
		return nil, fmt.Errorf("adjacency must be square, got %dx%d: %w", r, c, ErrDimensionMismatch)
	}

	loop := mat.NewDense(r, r, nil)
	loop.Copy(adj)
	for i := 0; i < r; i++ {
		loop.Set(i, i, loop.At(i, i)+1)
	}

	invSqrt := make([]float64, r)
	for i := 0; i < r; i++ {
		deg := 0.0
		for j := 0; j < r; j++ {
			deg += loop.At(i, j)
		}
		invSqrt[i] = 1 / math.Sqrt(deg)
	}

	prop := mat.NewDense(r, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			prop.Set(i, j, invSqrt[i]*loop.At(i, j)*invSqrt[j])
		}
	}
	return prop, nil
}
