package config

import (
	"fmt"

	"github.com/kilianp07/roadflow/core/nn"
)

// ModelConfig describes the layer stack. Widths and activations are parallel
// lists; a mismatch in length is rejected before any computation.
type ModelConfig struct {
	GCNWidths      []int    `json:"gcn_widths"`
	GCNActivations []string `json:"gcn_activations"`
	RNNWidths      []int    `json:"rnn_widths"`
	RNNActivations []string `json:"rnn_activations"`
	Dropout        float64  `json:"dropout"`
}

// SetDefaults applies the reference architecture when nothing is configured.
func (c *ModelConfig) SetDefaults() {
	if len(c.GCNWidths) == 0 && len(c.GCNActivations) == 0 {
		c.GCNWidths = []int{16}
		c.GCNActivations = []string{"relu"}
	}
	if len(c.RNNWidths) == 0 && len(c.RNNActivations) == 0 {
		c.RNNWidths = []int{64}
		c.RNNActivations = []string{"tanh"}
	}
}

// Validate checks the parallel lists and ranges.
func (c ModelConfig) Validate() error {
	if len(c.GCNWidths) != len(c.GCNActivations) {
		return fmt.Errorf("gcn_widths has %d entries, gcn_activations has %d", len(c.GCNWidths), len(c.GCNActivations))
	}
	if len(c.RNNWidths) != len(c.RNNActivations) {
		return fmt.Errorf("rnn_widths has %d entries, rnn_activations has %d", len(c.RNNWidths), len(c.RNNActivations))
	}
	if len(c.RNNWidths) == 0 {
		return fmt.Errorf("at least one recurrent layer is required")
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0,1), got %f", c.Dropout)
	}
	for _, a := range append(append([]string{}, c.GCNActivations...), c.RNNActivations...) {
		if _, err := nn.ParseActivation(a); err != nil {
			return err
		}
	}
	return nil
}

// Layers assembles the validated layer-spec list consumed by the model
// builder.
func (c ModelConfig) Layers() []nn.LayerSpec {
	var specs []nn.LayerSpec
	for i, w := range c.GCNWidths {
		specs = append(specs, nn.GraphConv{Width: w, Activation: nn.Activation(c.GCNActivations[i])})
	}
	for i, w := range c.RNNWidths {
		specs = append(specs, nn.Recurrent{Width: w, Activation: nn.Activation(c.RNNActivations[i])})
	}
	if c.Dropout > 0 {
		specs = append(specs, nn.Dropout{Rate: c.Dropout})
	}
	specs = append(specs, nn.Dense{Width: 1})
	return specs
}
