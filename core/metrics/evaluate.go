package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when truth and prediction matrices
// disagree in shape.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// SensorError holds per-sensor evaluation results. MASE is NaN when the naive
// baseline made no error on this sensor, leaving the ratio undefined.
type SensorError struct {
	ModelMAE float64
	NaiveMAE float64
	MASE     float64
}

// Undefined reports whether the scaled error ratio is undefined for this
// sensor.
func (e SensorError) Undefined() bool { return math.IsNaN(e.MASE) }

// Report aggregates evaluation results across sensors. MeanMASE averages the
// defined ratios only; UndefinedMASE counts the sensors excluded from it.
type Report struct {
	Sensors       []SensorError
	ModelMAE      float64
	NaiveMAE      float64
	RMSE          float64
	MeanMASE      float64
	UndefinedMASE int
}

// Evaluate compares model and naive-baseline predictions against the truth.
// All three matrices are examples x sensors. The naive baseline predicts the
// last value of each input window; computing it is the caller's concern so
// the evaluator stays agnostic of windowing.
func Evaluate(truth, model, naive *mat.Dense) (Report, error) {
	er, ec := truth.Dims()
	if mr, mc := model.Dims(); mr != er || mc != ec {
		return Report{}, fmt.Errorf("model predictions %dx%d, truth %dx%d: %w", mr, mc, er, ec, ErrDimensionMismatch)
	}
	if nr, nc := naive.Dims(); nr != er || nc != ec {
		return Report{}, fmt.Errorf("naive predictions %dx%d, truth %dx%d: %w", nr, nc, er, ec, ErrDimensionMismatch)
	}
	if er == 0 {
		return Report{}, fmt.Errorf("no evaluation examples: %w", ErrDimensionMismatch)
	}

	rep := Report{Sensors: make([]SensorError, ec)}
	sumSq := 0.0
	definedSum := 0.0
	for s := 0; s < ec; s++ {
		modelAbs, naiveAbs := 0.0, 0.0
		for i := 0; i < er; i++ {
			mDiff := model.At(i, s) - truth.At(i, s)
			modelAbs += math.Abs(mDiff)
			sumSq += mDiff * mDiff
			naiveAbs += math.Abs(naive.At(i, s) - truth.At(i, s))
		}
		se := SensorError{
			ModelMAE: modelAbs / float64(er),
			NaiveMAE: naiveAbs / float64(er),
		}
		if se.NaiveMAE == 0 {
			se.MASE = math.NaN()
			rep.UndefinedMASE++
		} else {
			se.MASE = se.ModelMAE / se.NaiveMAE
			definedSum += se.MASE
		}
		rep.Sensors[s] = se
		rep.ModelMAE += se.ModelMAE
		rep.NaiveMAE += se.NaiveMAE
	}

	rep.ModelMAE /= float64(ec)
	rep.NaiveMAE /= float64(ec)
	rep.RMSE = math.Sqrt(sumSq / float64(er*ec))
	if defined := ec - rep.UndefinedMASE; defined > 0 {
		rep.MeanMASE = definedSum / float64(defined)
	} else {
		rep.MeanMASE = math.NaN()
	}
	return rep, nil
}
