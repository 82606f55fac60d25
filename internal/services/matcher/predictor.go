package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrPredictorDisabled is returned by DisabledPredictor.
var ErrPredictorDisabled = errors.New("ml predictor disabled")

// Predictor scores one feature vector with a match probability in [0,1].
type Predictor interface {
	Predict(ctx context.Context, features FeatureVector) (float64, error)
	Enabled() bool
}

// DisabledPredictor leaves scoring to the rule path.
type DisabledPredictor struct{}

// Predict always fails with ErrPredictorDisabled.
func (DisabledPredictor) Predict(context.Context, FeatureVector) (float64, error) {
	return 0, ErrPredictorDisabled
}

// Enabled reports false.
func (DisabledPredictor) Enabled() bool { return false }

// MLPPredictor runs an in-process multilayer perceptron.
type MLPPredictor struct {
	model *Model
}

// NewMLPPredictor wraps a loaded model.
func NewMLPPredictor(model *Model) *MLPPredictor {
	return &MLPPredictor{model: model}
}

// Predict runs the forward pass.
func (p *MLPPredictor) Predict(ctx context.Context, features FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.model.Forward(features[:])
}

// Enabled reports true.
func (p *MLPPredictor) Enabled() bool { return true }

func validProbability(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
		return fmt.Errorf("probability %v outside [0,1]", p)
	}
	return nil
}
