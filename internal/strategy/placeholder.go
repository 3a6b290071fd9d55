package strategy

import (
	"github.com/Turbo503/EchoNode/internal/feature"
	"github.com/Turbo503/EchoNode/internal/model"
)

// Placeholder is the rule-based trend-following predictor active until a
// learned artifact replaces it: long when price rides above its slow average
// with the fast average leading, short in the mirrored case, flat in between.
type Placeholder struct {
	// Threshold is the minimum SMA deviation magnitude to leave FLAT.
	Threshold float64
}

// NewPlaceholder uses a 0.2% deviation threshold.
func NewPlaceholder() *Placeholder {
	return &Placeholder{Threshold: 0.002}
}

func (p *Placeholder) Name() string { return "placeholder" }

func (p *Placeholder) Predict(vec model.FeatureVector) (model.Decision, error) {
	if err := validateInput(vec); err != nil {
		return model.Flat, err
	}
	dev := feature.TrendDeviation(vec)
	spread := feature.SMASpread(vec)

	switch {
	case dev > p.Threshold && spread > 0:
		return model.Long, nil
	case dev < -p.Threshold && spread < 0:
		return model.Short, nil
	default:
		return model.Flat, nil
	}
}
