package retrain

import (
	"fmt"

	"github.com/Turbo503/EchoNode/internal/model"
)

// sample pairs a feature window with its forward-looking label.
type sample struct {
	features model.FeatureVector
	label    model.Decision
}

// buildSamples slides a feature window over the history and labels each
// position by the forward return `horizon` candles ahead: LONG above the
// threshold, SHORT below its negative, FLAT in between.
func (p *Pipeline) buildSamples(window model.Window) ([]sample, error) {
	candles := window.Candles
	need := p.cfg.WindowSize + p.cfg.Horizon + 1
	if len(candles) < need {
		return nil, fmt.Errorf("need at least %d candles for training, have %d", need, len(candles))
	}

	var samples []sample
	for end := p.cfg.WindowSize; end+p.cfg.Horizon < len(candles); end++ {
		sub := model.Window{Symbol: window.Symbol, Candles: candles[end-p.cfg.WindowSize : end]}
		vec, err := p.generator.Generate(sub)
		if err != nil {
			return nil, err
		}

		entry := candles[end-1].Close
		exit := candles[end-1+p.cfg.Horizon].Close
		label := model.Flat
		if entry > 0 {
			ret := exit/entry - 1
			switch {
			case ret > p.cfg.LabelThreshold:
				label = model.Long
			case ret < -p.cfg.LabelThreshold:
				label = model.Short
			}
		}
		samples = append(samples, sample{features: vec, label: label})
	}
	return samples, nil
}

// trainPerceptron runs a deterministic multi-class averaged perceptron over
// the samples for a fixed number of epochs. Rows follow the SHORT/FLAT/LONG
// class order; the last column is the bias.
func trainPerceptron(samples []sample, epochs int) [][]float64 {
	if epochs <= 0 {
		epochs = 5
	}
	width := 0
	if len(samples) > 0 {
		width = len(samples[0].features) + 1
	}
	weights := make([][]float64, 3)
	sums := make([][]float64, 3)
	for i := range weights {
		weights[i] = make([]float64, width)
		sums[i] = make([]float64, width)
	}
	if width == 0 {
		return weights
	}

	steps := 0
	for epoch := 0; epoch < epochs; epoch++ {
		for _, s := range samples {
			pred := argmax(weights, s.features)
			truth := classIdx(s.label)
			if pred != truth {
				for j, v := range s.features {
					weights[truth][j] += v
					weights[pred][j] -= v
				}
				weights[truth][width-1] += 1
				weights[pred][width-1] -= 1
			}
			for i := range weights {
				for j := range weights[i] {
					sums[i][j] += weights[i][j]
				}
			}
			steps++
		}
	}

	// Averaging stabilizes the final weights against late-epoch oscillation.
	for i := range sums {
		for j := range sums[i] {
			sums[i][j] /= float64(steps)
		}
	}
	return sums
}

func argmax(weights [][]float64, vec model.FeatureVector) int {
	best, bestScore := 1, scoreRow(weights[1], vec)
	for i, row := range weights {
		if i == 1 {
			continue
		}
		if s := scoreRow(row, vec); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

func scoreRow(row []float64, vec model.FeatureVector) float64 {
	score := row[len(row)-1]
	for j, v := range vec {
		score += row[j] * v
	}
	return score
}

func classIdx(d model.Decision) int {
	switch d {
	case model.Short:
		return 0
	case model.Long:
		return 2
	default:
		return 1
	}
}
