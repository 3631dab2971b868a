package config

import "fmt"

// DataConfig locates the input matrices and sets the windowing parameters.
type DataConfig struct {
	// SpeedCSV is the observation matrix file, sensors x timesteps unless
	// Transpose is set.
	SpeedCSV string `json:"speed_csv"`
	// AdjCSV is the sensors x sensors adjacency matrix file.
	AdjCSV string `json:"adj_csv"`
	// SkipHeader drops the first CSV row of both files.
	SkipHeader bool `json:"skip_header"`
	// Transpose treats the observation file as timesteps x sensors.
	Transpose bool `json:"transpose"`
	// SeqLen is the number of past timesteps fed to the model.
	SeqLen int `json:"seq_len"`
	// PreLen is the forecast horizon past the end of the window.
	PreLen int `json:"pre_len"`
	// TrainPortion is the chronological fraction of timesteps used for
	// training.
	TrainPortion float64 `json:"train_portion"`
}

// SetDefaults applies sane defaults.
func (c *DataConfig) SetDefaults() {
	if c.SeqLen == 0 {
		c.SeqLen = 10
	}
	if c.PreLen == 0 {
		c.PreLen = 12
	}
	if c.TrainPortion == 0 {
		c.TrainPortion = 0.8
	}
}

// Validate checks mandatory fields and ranges.
func (c DataConfig) Validate() error {
	if c.SpeedCSV == "" {
		return fmt.Errorf("speed_csv is required")
	}
	if c.AdjCSV == "" {
		return fmt.Errorf("adj_csv is required")
	}
	if c.SeqLen < 1 {
		return fmt.Errorf("seq_len must be positive, got %d", c.SeqLen)
	}
	if c.PreLen < 1 {
		return fmt.Errorf("pre_len must be positive, got %d", c.PreLen)
	}
	if c.TrainPortion <= 0 || c.TrainPortion >= 1 {
		return fmt.Errorf("train_portion must be in (0,1), got %f", c.TrainPortion)
	}
	return nil
}
