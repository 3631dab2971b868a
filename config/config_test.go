package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/roadflow/core/nn"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	data := `data:
  speed_csv: "sz_speed.csv"
  adj_csv: "sz_adj.csv"
  transpose: true
  seq_len: 4
  pre_len: 1
  train_portion: 0.8
model:
  gcn_widths: [16]
  gcn_activations: ["relu"]
  rnn_widths: [64]
  rnn_activations: ["tanh"]
  dropout: 0.2
training:
  epochs: 100
  batch_size: 16
  learning_rate: 0.01
metrics:
  prometheus_enabled: true
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  topic: "traffic/forecast"
`
	cfg, err := Load(writeConfig(t, "config.yaml", data))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"speed_csv", cfg.Data.SpeedCSV, "sz_speed.csv"},
		{"adj_csv", cfg.Data.AdjCSV, "sz_adj.csv"},
		{"transpose", cfg.Data.Transpose, true},
		{"seq_len", cfg.Data.SeqLen, 4},
		{"pre_len", cfg.Data.PreLen, 1},
		{"train_portion", cfg.Data.TrainPortion, 0.8},
		{"gcn_width", cfg.Model.GCNWidths[0], 16},
		{"rnn_activation", cfg.Model.RNNActivations[0], "tanh"},
		{"dropout", cfg.Model.Dropout, 0.2},
		{"epochs", cfg.Training.Epochs, 100},
		{"batch_size", cfg.Training.BatchSize, 16},
		{"learning_rate", cfg.Training.LearningRate, 0.01},
		{"prometheus", cfg.Metrics.PrometheusEnabled, true},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":2112"},
		{"mqtt_broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt_topic", cfg.MQTT.Topic, "traffic/forecast"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	data := `data:
  speed_csv: "speed.csv"
  adj_csv: "adj.csv"
`
	cfg, err := Load(writeConfig(t, "config.yaml", data))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Data.SeqLen != 10 || cfg.Data.PreLen != 12 || cfg.Data.TrainPortion != 0.8 {
		t.Fatalf("data defaults = %+v", cfg.Data)
	}
	if cfg.Training.Epochs != 50 || cfg.Training.LearningRate != 0.001 {
		t.Fatalf("training defaults = %+v", cfg.Training)
	}
	if len(cfg.Model.RNNWidths) != 1 || cfg.Model.RNNWidths[0] != 64 {
		t.Fatalf("model defaults = %+v", cfg.Model)
	}
}

func TestLoadRejectsMismatchedLists(t *testing.T) {
	data := `data:
  speed_csv: "speed.csv"
  adj_csv: "adj.csv"
model:
  gcn_widths: [16, 32]
  gcn_activations: ["relu"]
  rnn_widths: [64]
  rnn_activations: ["tanh"]
`
	if _, err := Load(writeConfig(t, "config.yaml", data)); err == nil {
		t.Fatalf("expected error for mismatched parallel lists")
	}
}

func TestLoadRejectsBadRanges(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"dropout", "data:\n  speed_csv: a\n  adj_csv: b\nmodel:\n  rnn_widths: [8]\n  rnn_activations: [\"tanh\"]\n  dropout: 1.0\n"},
		{"train_portion", "data:\n  speed_csv: a\n  adj_csv: b\n  train_portion: 1.5\n"},
		{"seq_len", "data:\n  speed_csv: a\n  adj_csv: b\n  seq_len: -3\n"},
		{"missing files", "training:\n  epochs: 5\n"},
		{"mqtt broker", "data:\n  speed_csv: a\n  adj_csv: b\nmqtt:\n  enabled: true\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, "config.yaml", c.data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.toml", "x = 1\n")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestModelLayers(t *testing.T) {
	cfg := ModelConfig{
		GCNWidths:      []int{16},
		GCNActivations: []string{"relu"},
		RNNWidths:      []int{32, 64},
		RNNActivations: []string{"tanh", "tanh"},
		Dropout:        0.3,
	}
	specs := cfg.Layers()
	if len(specs) != 5 {
		t.Fatalf("spec count = %d, want 5", len(specs))
	}
	if _, ok := specs[0].(nn.GraphConv); !ok {
		t.Fatalf("first spec %T, want GraphConv", specs[0])
	}
	if d, ok := specs[3].(nn.Dropout); !ok || d.Rate != 0.3 {
		t.Fatalf("fourth spec %T, want Dropout{0.3}", specs[3])
	}
	if _, ok := specs[4].(nn.Dense); !ok {
		t.Fatalf("last spec %T, want Dense", specs[4])
	}
}
