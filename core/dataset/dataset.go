// Package dataset turns a raw sensor-by-time observation matrix into
// supervised training and test examples for the forecasting model.
package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientData is returned when a partition holds fewer timesteps than
// one window plus its prediction horizon, so no example can be produced.
var ErrInsufficientData = errors.New("insufficient data for windowing")

// Set bundles the windowed tensors for both partitions. X entries are
// sensors x seq_len matrices; Y rows hold the target value per sensor for the
// example at the same index.
type Set struct {
	TrainX []*mat.Dense
	TrainY *mat.Dense
	TestX  []*mat.Dense
	TestY  *mat.Dense
}

// Split partitions the observation matrix chronologically. The first
// floor(T*portion) columns form the training matrix, the remainder the test
// matrix. Rows (sensors) are never split.
func Split(obs *mat.Dense, portion float64) (train, test *mat.Dense) {
	n, tLen := obs.Dims()
	cut := int(float64(tLen) * portion)
	train = mat.DenseCopyOf(obs.Slice(0, n, 0, cut))
	test = mat.DenseCopyOf(obs.Slice(0, n, cut, tLen))
	return train, test
}

// Windows slides a seq_len-wide window over the matrix one timestep at a time.
// For start index i the input is columns [i, i+seqLen) and the target is
// column i+seqLen+preLen-1, the value preLen steps past the window's end
// counting the step after the window as step one. Windows are emitted in
// increasing order of i. A partition shorter than seqLen+preLen yields
// ErrInsufficientData.
func Windows(m *mat.Dense, seqLen, preLen int) ([]*mat.Dense, *mat.Dense, error) {
	if seqLen < 1 || preLen < 1 {
		return nil, nil, fmt.Errorf("seq_len and pre_len must be positive, got %d and %d", seqLen, preLen)
	}
	n, tLen := m.Dims()
	count := tLen - (seqLen + preLen - 1)
	if count <= 0 {
		return nil, nil, fmt.Errorf("%d timesteps cannot fit seq_len=%d pre_len=%d: %w",
			tLen, seqLen, preLen, ErrInsufficientData)
	}

	xs := make([]*mat.Dense, count)
	ys := mat.NewDense(count, n, nil)
	for i := 0; i < count; i++ {
		xs[i] = mat.DenseCopyOf(m.Slice(0, n, i, i+seqLen))
		for s := 0; s < n; s++ {
			ys.Set(i, s, m.At(s, i+seqLen+preLen-1))
		}
	}
	return xs, ys, nil
}

// Prepare windows both partitions independently so no example straddles the
// train/test boundary.
func Prepare(seqLen, preLen int, train, test *mat.Dense) (*Set, error) {
	trainX, trainY, err := Windows(train, seqLen, preLen)
	if err != nil {
		return nil, fmt.Errorf("train partition: %w", err)
	}
	testX, testY, err := Windows(test, seqLen, preLen)
	if err != nil {
		return nil, fmt.Errorf("test partition: %w", err)
	}
	return &Set{TrainX: trainX, TrainY: trainY, TestX: testX, TestY: testY}, nil
}
