package strategy

import (
	"fmt"
	"math"

	"github.com/Turbo503/EchoNode/internal/model"
)

// Linear is a learned predictor: one weight row per decision class plus a
// bias term, argmax over the scores. Deterministic for a given artifact.
type Linear struct {
	artifact model.ModelArtifact
}

// NewLinear wraps a trained artifact. The weight shape is validated once so
// Predict can stay cheap.
func NewLinear(artifact model.ModelArtifact) (*Linear, error) {
	if len(artifact.Weights) != len(classes) {
		return nil, fmt.Errorf("artifact v%d: expected %d weight rows, got %d",
			artifact.Version, len(classes), len(artifact.Weights))
	}
	width := len(artifact.Weights[0])
	for i, row := range artifact.Weights {
		if len(row) != width {
			return nil, fmt.Errorf("artifact v%d: ragged weight row %d", artifact.Version, i)
		}
		for _, w := range row {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("artifact v%d: non-finite weight in row %d", artifact.Version, i)
			}
		}
	}
	return &Linear{artifact: artifact}, nil
}

func (l *Linear) Name() string {
	return fmt.Sprintf("linear_v%d", l.artifact.Version)
}

// Artifact returns the underlying artifact.
func (l *Linear) Artifact() model.ModelArtifact { return l.artifact }

func (l *Linear) Predict(vec model.FeatureVector) (model.Decision, error) {
	if err := validateInput(vec); err != nil {
		return model.Flat, err
	}
	if len(vec)+1 != len(l.artifact.Weights[0]) {
		return model.Flat, fmt.Errorf("%w: feature dim %d does not match artifact dim %d",
			ErrModelFault, len(vec), len(l.artifact.Weights[0])-1)
	}

	best := classIndex(model.Flat)
	bestScore := math.Inf(-1)
	for i, row := range l.artifact.Weights {
		score := row[len(row)-1] // bias
		for j, v := range vec {
			score += row[j] * v
		}
		if math.IsNaN(score) {
			return model.Flat, fmt.Errorf("%w: non-finite score for class %s", ErrModelFault, classes[i])
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return classes[best], nil
}
