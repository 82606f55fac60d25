package matcher

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Activation names accepted in model files.
const (
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationLinear  = "linear"
)

// Model is an exported feed-forward classifier: a standard scaler followed by
// dense layers. Weights use the out×in layout of the training framework.
type Model struct {
	Version      int      `json:"version"`
	FeatureNames []string `json:"feature_names,omitempty"`
	Scaler       Scaler   `json:"scaler"`
	Layers       []Layer  `json:"layers"`
}

// Scaler standardizes inputs as (x-mean)/scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Layer is one dense layer.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// LoadModel decodes and validates a model artifact.
func LoadModel(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadModelFile reads a model artifact from disk.
func LoadModelFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model: %w", err)
	}
	defer f.Close()
	return LoadModel(f)
}

// Validate checks that layer shapes chain from FeatureCount inputs to a single
// sigmoid output.
func (m *Model) Validate() error {
	if len(m.Scaler.Mean) != FeatureCount || len(m.Scaler.Scale) != FeatureCount {
		return fmt.Errorf("scaler must have %d entries, got mean=%d scale=%d",
			FeatureCount, len(m.Scaler.Mean), len(m.Scaler.Scale))
	}
	if len(m.Layers) == 0 {
		return fmt.Errorf("model has no layers")
	}

	in := FeatureCount
	for i, layer := range m.Layers {
		if len(layer.Weights) == 0 {
			return fmt.Errorf("layer %d has no weights", i)
		}
		if len(layer.Bias) != len(layer.Weights) {
			return fmt.Errorf("layer %d: bias has %d entries for %d outputs", i, len(layer.Bias), len(layer.Weights))
		}
		for j, row := range layer.Weights {
			if len(row) != in {
				return fmt.Errorf("layer %d row %d: expected %d inputs, got %d", i, j, in, len(row))
			}
		}
		switch layer.Activation {
		case ActivationReLU, ActivationSigmoid, ActivationLinear, "":
		default:
			return fmt.Errorf("layer %d: unknown activation %q", i, layer.Activation)
		}
		in = len(layer.Weights)
	}

	last := m.Layers[len(m.Layers)-1]
	if in != 1 || last.Activation != ActivationSigmoid {
		return fmt.Errorf("final layer must be a single sigmoid output")
	}
	return nil
}

// Forward returns the model's probability for one input vector.
func (m *Model) Forward(features []float64) (float64, error) {
	if len(features) != FeatureCount {
		return 0, fmt.Errorf("expected %d features, got %d", FeatureCount, len(features))
	}

	x := make([]float64, FeatureCount)
	for i, v := range features {
		scale := m.Scaler.Scale[i]
		if scale == 0 {
			scale = 1
		}
		x[i] = (v - m.Scaler.Mean[i]) / scale
	}

	for _, layer := range m.Layers {
		out := make([]float64, len(layer.Weights))
		for j, row := range layer.Weights {
			sum := layer.Bias[j]
			for k, w := range row {
				sum += w * x[k]
			}
			out[j] = activate(layer.Activation, sum)
		}
		x = out
	}

	return x[0], nil
}

func activate(name string, v float64) float64 {
	switch name {
	case ActivationReLU:
		return math.Max(0, v)
	case ActivationSigmoid:
		return 1 / (1 + math.Exp(-v))
	default:
		return v
	}
}
