// Package scale provides the min/max normalization applied to observations
// before training and the reporting inverse used by the evaluator.
package scale

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateData is returned when the training partition is constant, which
// would make the affine transform divide by zero.
var ErrDegenerateData = errors.New("degenerate training data: max equals min")

// MinMax holds the bounds fitted on the training partition. The same bounds
// are reused, never refit, for the test partition and for reporting.
type MinMax struct {
	Min float64
	Max float64
}

// Fit scans the training matrix for its extreme values.
func Fit(train *mat.Dense) (MinMax, error) {
	min := mat.Min(train)
	max := mat.Max(train)
	if max == min {
		return MinMax{}, fmt.Errorf("all values equal %g: %w", max, ErrDegenerateData)
	}
	return MinMax{Min: min, Max: max}, nil
}

// Transform maps values into [0,1] via (x-min)/(max-min). Values from the test
// partition may fall outside [0,1]; that is expected and harmless. The input is
// left untouched.
func (s MinMax) Transform(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	span := s.Max - s.Min
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, (m.At(i, j)-s.Min)/span)
		}
	}
	return out
}

// InverseReport rescales a normalized value for reporting by multiplying with
// the training maximum alone. The training minimum is deliberately not added
// back; evaluation compares model and baseline in the same max-scaled units,
// so the asymmetry cancels out of the error ratios.
func (s MinMax) InverseReport(v float64) float64 {
	return v * s.Max
}

// InverseReportMatrix applies InverseReport element-wise, returning a new
// matrix.
func (s MinMax) InverseReportMatrix(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(i, j)*s.Max)
		}
	}
	return out
}
