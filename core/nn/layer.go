package nn

import (
	"errors"
	"fmt"
)

// Spec taxonomy errors. ErrConfigMismatch covers malformed layer stacks and
// out-of-range hyperparameters and is raised before any computation.
var (
	ErrConfigMismatch    = errors.New("invalid model configuration")
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// LayerSpec is a tagged-variant description of one layer in the model stack.
// A valid stack is zero or more GraphConv layers, one or more Recurrent
// layers, an optional Dropout, and a final Dense projection.
type LayerSpec interface {
	validate() error
}

// GraphConv mixes features across spatially adjacent sensors at every
// timestep using the fixed propagation matrix.
type GraphConv struct {
	Width      int
	Activation Activation
}

// Recurrent consumes each sensor's feature sequence through a GRU-style cell.
type Recurrent struct {
	Width      int
	Activation Activation
}

// Dropout zeroes a fraction of the final hidden features during training.
type Dropout struct {
	Rate float64
}

// Dense projects each sensor's final hidden vector to Width outputs with
// weights shared across sensors.
type Dense struct {
	Width int
}

func (l GraphConv) validate() error {
	if l.Width < 1 {
		return fmt.Errorf("graph conv width %d: %w", l.Width, ErrConfigMismatch)
	}
	if _, err := ParseActivation(string(l.Activation)); err != nil {
		return err
	}
	return nil
}

func (l Recurrent) validate() error {
	if l.Width < 1 {
		return fmt.Errorf("recurrent width %d: %w", l.Width, ErrConfigMismatch)
	}
	if _, err := ParseActivation(string(l.Activation)); err != nil {
		return err
	}
	return nil
}

func (l Dropout) validate() error {
	if l.Rate < 0 || l.Rate >= 1 {
		return fmt.Errorf("dropout rate %f outside [0,1): %w", l.Rate, ErrConfigMismatch)
	}
	return nil
}

func (l Dense) validate() error {
	if l.Width < 1 {
		return fmt.Errorf("dense width %d: %w", l.Width, ErrConfigMismatch)
	}
	return nil
}
