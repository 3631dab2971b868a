package nn

import (
	"fmt"
	"math"
)

// Activation names an element-wise nonlinearity applied by a layer.
type Activation string

const (
	Linear  Activation = "linear"
	ReLU    Activation = "relu"
	Sigmoid Activation = "sigmoid"
	Tanh    Activation = "tanh"
)

// ParseActivation validates a configured activation name.
func ParseActivation(name string) (Activation, error) {
	switch Activation(name) {
	case Linear, ReLU, Sigmoid, Tanh:
		return Activation(name), nil
	}
	return "", fmt.Errorf("unknown activation %q: %w", name, ErrConfigMismatch)
}

// apply evaluates the activation at x.
func (a Activation) apply(x float64) float64 {
	switch a {
	case ReLU:
		if x < 0 {
			return 0
		}
		return x
	case Sigmoid:
		return 1 / (1 + math.Exp(-x))
	case Tanh:
		return math.Tanh(x)
	default:
		return x
	}
}

// derivFromOutput returns the activation derivative expressed in terms of the
// activation output y. All supported activations admit this form, which lets
// the backward pass reuse cached outputs instead of pre-activations.
func (a Activation) derivFromOutput(y float64) float64 {
	switch a {
	case ReLU:
		if y > 0 {
			return 1
		}
		return 0
	case Sigmoid:
		return y * (1 - y)
	case Tanh:
		return 1 - y*y
	default:
		return 1
	}
}
