package strategy

import (
	"errors"
	"fmt"

	"github.com/Turbo503/EchoNode/internal/model"
)

// ErrModelFault is reported when prediction fails internally. The caller
// receives FLAT alongside it; a model fault never propagates into order
// submission as anything but a safe default.
var ErrModelFault = errors.New("model fault")

// Predictor maps a feature vector to a position decision. The placeholder
// variant and any learned variant satisfy the same contract, so the position
// manager is agnostic to which is active.
type Predictor interface {
	Predict(vec model.FeatureVector) (model.Decision, error)
	Name() string
}

// classes fixes the decision order used by learned weight rows.
var classes = [3]model.Decision{model.Short, model.Flat, model.Long}

// classIndex returns the weight-row index for a decision.
func classIndex(d model.Decision) int {
	for i, c := range classes {
		if c == d {
			return i
		}
	}
	return 1 // FLAT
}

func validateInput(vec model.FeatureVector) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty feature vector", ErrModelFault)
	}
	return nil
}
